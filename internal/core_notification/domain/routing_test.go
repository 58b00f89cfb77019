package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRoutingEntry(t *testing.T) {
	entry := DefaultRoutingEntry("user.signup")

	assert.Equal(t, "user.signup", entry.EventID)
	assert.Equal(t, StrategyParallel, entry.EffectiveStrategy())
	assert.Equal(t, 0, entry.RateLimitHours())
	assert.Equal(t, []Channel{ChannelEmail}, entry.AttemptOrder())
}

func TestRoutingEntry_EffectiveStrategy(t *testing.T) {
	assert.Equal(t, StrategyParallel, RoutingEntry{}.EffectiveStrategy())
	assert.Equal(t, StrategyParallel, RoutingEntry{Strategy: "weird"}.EffectiveStrategy())
	assert.Equal(t, StrategyFallback, RoutingEntry{Strategy: StrategyFallback}.EffectiveStrategy())
}

func TestRoutingEntry_RateLimitHours_MaxAcrossEnabledChannels(t *testing.T) {
	entry := RoutingEntry{
		Channels: map[Channel]ChannelRoute{
			ChannelEmail:    {Enabled: true, RateLimitHours: 2},
			ChannelSMS:      {Enabled: true, RateLimitHours: 6},
			ChannelWhatsApp: {Enabled: false, RateLimitHours: 24},
		},
	}

	// Disabled channels do not contribute to the window.
	assert.Equal(t, 6, entry.RateLimitHours())
}

func TestRoutingEntry_AttemptOrder_ParallelUsesCanonicalOrder(t *testing.T) {
	entry := RoutingEntry{
		Strategy: StrategyParallel,
		Channels: map[Channel]ChannelRoute{
			ChannelPush:  {Enabled: true},
			ChannelEmail: {Enabled: true},
			ChannelSMS:   {Enabled: false},
			ChannelInApp: {Enabled: true},
		},
	}

	assert.Equal(t, []Channel{ChannelEmail, ChannelPush, ChannelInApp}, entry.AttemptOrder())
}

func TestRoutingEntry_AttemptOrder_FallbackHonorsDeclaredOrder(t *testing.T) {
	entry := RoutingEntry{
		Strategy: StrategyFallback,
		Order:    []Channel{ChannelPush, ChannelSMS, ChannelEmail, Channel("pigeon")},
		Channels: map[Channel]ChannelRoute{
			ChannelEmail: {Enabled: true},
			ChannelSMS:   {Enabled: false},
			ChannelPush:  {Enabled: true},
		},
	}

	// Declared order wins; disabled and unknown names are dropped.
	assert.Equal(t, []Channel{ChannelPush, ChannelEmail}, entry.AttemptOrder())
}

func TestAdaptLegacyRouting(t *testing.T) {
	legacy := LegacyRoutingEntry{
		Channels:   []string{"email", "sms", "carrier_pigeon"},
		RateLimitH: 2,
	}

	entry := AdaptLegacyRouting("order.shipped", legacy)

	assert.Equal(t, "order.shipped", entry.EventID)
	assert.Equal(t, StrategyParallel, entry.EffectiveStrategy())

	assert.True(t, entry.Channels[ChannelEmail].Enabled)
	assert.True(t, entry.Channels[ChannelSMS].Enabled)
	assert.False(t, entry.Channels[ChannelWhatsApp].Enabled)
	assert.False(t, entry.Channels[ChannelPush].Enabled)
	assert.False(t, entry.Channels[ChannelInApp].Enabled)

	// The shared window is carried onto every known channel.
	for _, ch := range AllChannels {
		assert.Equal(t, 2, entry.Channels[ch].RateLimitHours, string(ch))
	}

	assert.Equal(t, 2, entry.RateLimitHours())
	assert.Equal(t, []Channel{ChannelEmail, ChannelSMS}, entry.AttemptOrder())
}

func TestAdaptLegacyRouting_EmptyList(t *testing.T) {
	entry := AdaptLegacyRouting("noop.event", LegacyRoutingEntry{})

	assert.Empty(t, entry.AttemptOrder())
	assert.Equal(t, 0, entry.RateLimitHours())
}
