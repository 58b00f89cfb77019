package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryKey_Deterministic(t *testing.T) {
	key := DeliveryKey("signup-123", ChannelEmail, "W@Example.com")

	assert.Equal(t, "signup-123|email|w@example.com", key)
	assert.Equal(t, key, DeliveryKey("signup-123", ChannelEmail, "w@example.com"))
}

func TestDeliveryKey_SanitizesDestination(t *testing.T) {
	assert.Equal(t, "k|sms|+33612345678", DeliveryKey("k", ChannelSMS, "+33612345678"))
	assert.Equal(t, "k|email|a_b@x.co", DeliveryKey("k", ChannelEmail, "a b@x.co"))
	assert.Equal(t, "k|push|t_k_n", DeliveryKey("k", ChannelPush, "t#k%n"))
}

func TestDeliveryKey_BoundsDestinationLength(t *testing.T) {
	long := strings.Repeat("a", 500) + "@example.com"
	key := DeliveryKey("k", ChannelEmail, long)

	dest := strings.TrimPrefix(key, "k|email|")
	assert.Len(t, dest, 120)
}

func TestDeliveryStatus_Terminal(t *testing.T) {
	assert.False(t, DeliveryStatusQueued.Terminal())
	assert.False(t, DeliveryStatusFailed.Terminal())
	assert.True(t, DeliveryStatusSent.Terminal())
	assert.True(t, DeliveryStatusDelivered.Terminal())
}

func TestDeliveryStatus_Scan(t *testing.T) {
	var s DeliveryStatus
	require.NoError(t, s.Scan("sent"))
	assert.Equal(t, DeliveryStatusSent, s)

	require.NoError(t, s.Scan([]byte("failed")))
	assert.Equal(t, DeliveryStatusFailed, s)

	assert.Error(t, s.Scan("archived"))
	assert.Error(t, s.Scan(42))
}

func TestEvent_EffectiveDedupeKey(t *testing.T) {
	assert.Equal(t, "explicit-key", Event{EventID: "user.signup", DedupeKey: "explicit-key"}.EffectiveDedupeKey())
	assert.Equal(t, "user.signup", Event{EventID: "user.signup"}.EffectiveDedupeKey())
	assert.Equal(t, "user.signup", Event{EventID: "user.signup", DedupeKey: "   "}.EffectiveDedupeKey())
}

func TestLookupPath(t *testing.T) {
	ctx := map[string]any{
		"user": map[string]any{
			"email": "w@example.com",
			"profile": map[string]any{
				"firstName": "William",
			},
		},
		"flat": "value",
	}

	v, ok := LookupPath(ctx, "user.profile.firstName")
	require.True(t, ok)
	assert.Equal(t, "William", v)

	v, ok = LookupPath(ctx, "flat")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = LookupPath(ctx, "user.missing")
	assert.False(t, ok)

	// A scalar in the middle of the path is not traversable.
	_, ok = LookupPath(ctx, "flat.deeper")
	assert.False(t, ok)

	_, ok = LookupPath(ctx, "")
	assert.False(t, ok)

	_, ok = LookupPath(nil, "user.email")
	assert.False(t, ok)
}
