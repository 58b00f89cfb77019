package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// DeliveryStatus defines the possible states of one delivery record.
//
//	queued    created, provider call not yet confirmed (resumable)
//	sent      provider accepted the message
//	failed    provider rejected or errored (retryable via re-dispatch)
//	delivered provider confirmed end-user delivery via callback
type DeliveryStatus string

const (
	DeliveryStatusQueued    DeliveryStatus = "queued"
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

// Value implements the driver.Valuer interface for DeliveryStatus.
func (s DeliveryStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan implements the sql.Scanner interface for DeliveryStatus.
func (s *DeliveryStatus) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan DeliveryStatus: value is %T, not string or []byte", value)
		}
		strVal = string(bytesVal)
	}
	*s = DeliveryStatus(strVal)
	switch *s {
	case DeliveryStatusQueued, DeliveryStatusSent, DeliveryStatusFailed, DeliveryStatusDelivered:
		return nil
	default:
		return fmt.Errorf("unknown DeliveryStatus value: %s", strVal)
	}
}

// Terminal reports whether the record must never be re-sent.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryStatusSent || s == DeliveryStatusDelivered
}

// DeliveryRecord is the unit of idempotency and audit: at most one exists per
// (dedupe key, channel, destination). Each transition timestamp is set at
// most once.
type DeliveryRecord struct {
	Key               string         `json:"key"`
	EventID           string         `json:"eventId"`
	DedupeKey         string         `json:"dedupeKey"`
	UID               string         `json:"uid,omitempty"`
	Channel           Channel        `json:"channel"`
	Destination       string         `json:"destination"`
	Status            DeliveryStatus `json:"status"`
	ProviderName      string         `json:"providerName,omitempty"`
	ProviderMessageID *string        `json:"providerMessageId,omitempty"`
	Error             *string        `json:"error,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	SentAt            *time.Time     `json:"sentAt,omitempty"`
	FailedAt          *time.Time     `json:"failedAt,omitempty"`
	DeliveredAt       *time.Time     `json:"deliveredAt,omitempty"`
}

const maxDestinationKeyLen = 120

// DeliveryKey derives the deterministic ledger key for one channel attempt.
// The destination is sanitized to a bounded safe character set so the key is
// usable as a primary key and in URLs regardless of what the producer sent.
func DeliveryKey(dedupeKey string, channel Channel, destination string) string {
	return dedupeKey + "|" + string(channel) + "|" + sanitizeDestination(destination)
}

func sanitizeDestination(destination string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(destination) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == '@', r == '+', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		if b.Len() >= maxDestinationKeyLen {
			break
		}
	}
	return b.String()
}
