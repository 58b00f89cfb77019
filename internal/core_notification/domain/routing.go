package domain

// RoutingStrategy decides how the enabled channels of an event are attempted.
type RoutingStrategy string

const (
	// StrategyParallel attempts all enabled channels independently.
	StrategyParallel RoutingStrategy = "parallel"
	// StrategyFallback attempts channels in declared order and stops at the
	// first successful send.
	StrategyFallback RoutingStrategy = "fallback"
)

// ChannelRoute is the per-channel slice of a routing entry.
type ChannelRoute struct {
	Enabled        bool   `json:"enabled"`
	Provider       string `json:"provider,omitempty"`
	RateLimitHours int    `json:"rateLimitH"`
	Retries        int    `json:"retries"`
	DelaySeconds   int    `json:"delaySec"`
}

// RoutingEntry is the delivery strategy configured for one event type.
type RoutingEntry struct {
	EventID  string                   `json:"eventId"`
	Strategy RoutingStrategy          `json:"strategy"`
	Order    []Channel                `json:"order,omitempty"`
	Channels map[Channel]ChannelRoute `json:"channels"`
}

// DefaultRoutingEntry is the safe default applied when no entry is configured
// for an event type: email only, parallel, no rate limit.
func DefaultRoutingEntry(eventID string) RoutingEntry {
	return RoutingEntry{
		EventID:  eventID,
		Strategy: StrategyParallel,
		Channels: map[Channel]ChannelRoute{
			ChannelEmail: {Enabled: true},
		},
	}
}

// EffectiveStrategy treats an absent strategy field as parallel.
func (r RoutingEntry) EffectiveStrategy() RoutingStrategy {
	if r.Strategy == StrategyFallback {
		return StrategyFallback
	}
	return StrategyParallel
}

// RateLimitHours returns the entry-wide rate-limit window: the maximum window
// configured across enabled channels. Rate limiting is evaluated once per
// event, not once per channel.
func (r RoutingEntry) RateLimitHours() int {
	max := 0
	for _, route := range r.Channels {
		if route.Enabled && route.RateLimitHours > max {
			max = route.RateLimitHours
		}
	}
	return max
}

// AttemptOrder is the channel sequence the dispatcher walks. For the fallback
// strategy it is the declared order (unknown or disabled names dropped); for
// parallel it is every enabled channel in the canonical order.
func (r RoutingEntry) AttemptOrder() []Channel {
	if r.EffectiveStrategy() == StrategyFallback && len(r.Order) > 0 {
		out := make([]Channel, 0, len(r.Order))
		for _, ch := range r.Order {
			if route, ok := r.Channels[ch]; ok && route.Enabled {
				out = append(out, ch)
			}
		}
		return out
	}
	out := make([]Channel, 0, len(r.Channels))
	for _, ch := range AllChannels {
		if route, ok := r.Channels[ch]; ok && route.Enabled {
			out = append(out, ch)
		}
	}
	return out
}

// LegacyRoutingEntry is the historical stored shape: a flat list of channel
// names plus one shared rate-limit window.
type LegacyRoutingEntry struct {
	Channels   []string `json:"channels"`
	RateLimitH int      `json:"rate_limit_h"`
}

// AdaptLegacyRouting translates the legacy shape into the canonical one
// without loss: every listed channel becomes enabled, every known channel
// carries the shared rate-limit value.
func AdaptLegacyRouting(eventID string, legacy LegacyRoutingEntry) RoutingEntry {
	entry := RoutingEntry{
		EventID:  eventID,
		Strategy: StrategyParallel,
		Channels: make(map[Channel]ChannelRoute, len(AllChannels)),
	}
	enabled := make(map[Channel]bool, len(legacy.Channels))
	for _, raw := range legacy.Channels {
		if ch, err := ParseChannel(raw); err == nil {
			enabled[ch] = true
		}
	}
	for _, ch := range AllChannels {
		entry.Channels[ch] = ChannelRoute{
			Enabled:        enabled[ch],
			RateLimitHours: legacy.RateLimitH,
		}
	}
	return entry
}
