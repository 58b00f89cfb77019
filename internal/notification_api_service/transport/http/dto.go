package http

import (
	"time"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
)

// IngestEventRequest is the body of POST /api/v1/events. It mirrors the
// event schema producers write.
type IngestEventRequest struct {
	EventID   string              `json:"eventId" validate:"required,min=1"`
	Locale    string              `json:"locale,omitempty"`
	To        domain.Destinations `json:"to,omitempty"`
	Context   map[string]any      `json:"context,omitempty"`
	DedupeKey string              `json:"dedupeKey,omitempty"`
	UID       string              `json:"uid,omitempty"`
}

// IngestEventResponse acknowledges acceptance; delivery is asynchronous.
type IngestEventResponse struct {
	EventID   string `json:"eventId"`
	DedupeKey string `json:"dedupeKey"`
	Accepted  bool   `json:"accepted"`
}

// DeliveryRecordResponse is the read shape of one ledger record.
type DeliveryRecordResponse struct {
	Key               string     `json:"key"`
	EventID           string     `json:"eventId"`
	DedupeKey         string     `json:"dedupeKey"`
	UID               string     `json:"uid,omitempty"`
	Channel           string     `json:"channel"`
	Destination       string     `json:"destination"`
	Status            string     `json:"status"`
	ProviderName      string     `json:"providerName,omitempty"`
	ProviderMessageID *string    `json:"providerMessageId,omitempty"`
	Error             *string    `json:"error,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	SentAt            *time.Time `json:"sentAt,omitempty"`
	FailedAt          *time.Time `json:"failedAt,omitempty"`
	DeliveredAt       *time.Time `json:"deliveredAt,omitempty"`
}

func toDeliveryResponse(rec *domain.DeliveryRecord) DeliveryRecordResponse {
	return DeliveryRecordResponse{
		Key:               rec.Key,
		EventID:           rec.EventID,
		DedupeKey:         rec.DedupeKey,
		UID:               rec.UID,
		Channel:           string(rec.Channel),
		Destination:       rec.Destination,
		Status:            string(rec.Status),
		ProviderName:      rec.ProviderName,
		ProviderMessageID: rec.ProviderMessageID,
		Error:             rec.Error,
		CreatedAt:         rec.CreatedAt,
		SentAt:            rec.SentAt,
		FailedAt:          rec.FailedAt,
		DeliveredAt:       rec.DeliveredAt,
	}
}

// DeliveryCallbackRequest is the body of POST /api/v1/callbacks/delivery,
// the provider-side delivery confirmation webhook. Providers reference the
// message by the id they returned at send time.
type DeliveryCallbackRequest struct {
	ProviderMessageID string `json:"providerMessageId" validate:"required"`
	Status            string `json:"status" validate:"required,oneof=delivered failed"`
}
