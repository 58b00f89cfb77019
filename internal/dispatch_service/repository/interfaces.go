package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
)

var (
	ErrTemplateNotFound = errors.New("template bundle not found")
	ErrRoutingNotFound  = errors.New("routing entry not found")
	ErrDeliveryNotFound = errors.New("delivery record not found")
	ErrSettingNotFound  = errors.New("setting not found")
)

// TemplateRepository reads template bundles. The store is read-only from the
// pipeline's perspective; administrators mutate it elsewhere.
type TemplateRepository interface {
	GetBundle(ctx context.Context, locale, eventID string) (*domain.TemplateBundle, error)
}

// RoutingRepository reads routing entries. Implementations must tolerate the
// legacy stored shape and adapt it to the canonical one.
type RoutingRepository interface {
	GetEntry(ctx context.Context, eventID string) (*domain.RoutingEntry, error)
}

// DeliveryRepository persists the delivery ledger.
type DeliveryRepository interface {
	// EnqueueOrGet atomically creates the record in queued status if no
	// record exists for its key, or returns the existing record. The
	// existence check and conditional create run as one transaction; this is
	// what makes the at-most-one-send invariant hold under concurrent
	// dispatch attempts for the same key.
	EnqueueOrGet(ctx context.Context, record *domain.DeliveryRecord) (existing *domain.DeliveryRecord, created bool, err error)
	Get(ctx context.Context, key string) (*domain.DeliveryRecord, error)
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.DeliveryRecord, error)
	UpdateSent(ctx context.Context, key, providerName, providerMessageID string, sentAt time.Time) error
	UpdateFailed(ctx context.Context, key, errorMessage string, failedAt time.Time) error
	UpdateDelivered(ctx context.Context, key string, deliveredAt time.Time) error
	// HasAttemptSince reports whether any non-failed attempt exists for the
	// (uid, eventID) pair created at or after since.
	HasAttemptSince(ctx context.Context, uid, eventID string, since time.Time) (bool, error)
	ListByUser(ctx context.Context, uid, eventID string, limit int) ([]*domain.DeliveryRecord, error)
}

// SettingsRepository reads operational flags, currently only the process-wide
// messaging kill switch.
type SettingsRepository interface {
	MessagingEnabled(ctx context.Context) (bool, error)
}

// InboxRepository stores materialized in-app messages.
type InboxRepository interface {
	Insert(ctx context.Context, msg *domain.InAppMessage) error
	ListByUser(ctx context.Context, uid string, limit int) ([]*domain.InAppMessage, error)
}
