package domain

import "strings"

// Destinations carries explicit per-channel destination overrides on an event.
// Any empty field falls back to a context-derived default in the dispatcher.
type Destinations struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	PushToken string `json:"pushToken,omitempty"`
	UID       string `json:"uid,omitempty"`
}

// Event is an immutable request to potentially notify someone. It is created
// once by an upstream producer, consumed exactly once per invocation by the
// dispatcher, and never mutated.
type Event struct {
	EventID   string         `json:"eventId" validate:"required"`
	Locale    string         `json:"locale,omitempty"`
	To        Destinations   `json:"to,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	DedupeKey string         `json:"dedupeKey,omitempty"`
	UID       string         `json:"uid,omitempty"`
}

// EffectiveDedupeKey is the logical identity used by the delivery ledger.
// When the producer supplied no explicit key, the event type itself is the key.
func (e Event) EffectiveDedupeKey() string {
	if k := strings.TrimSpace(e.DedupeKey); k != "" {
		return k
	}
	return e.EventID
}

// ContextValue walks a dotted path ("user.email") through the event context.
// The second return is false when any segment is absent or not traversable.
func (e Event) ContextValue(path string) (any, bool) {
	return LookupPath(e.Context, path)
}

// LookupPath resolves a dotted path through nested maps. Map values may be
// map[string]any (decoded JSON) at every level.
func LookupPath(m map[string]any, path string) (any, bool) {
	if m == nil || path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	var current any = m
	for _, seg := range segments {
		nested, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = nested[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
