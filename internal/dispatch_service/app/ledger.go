package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

// Ledger is the idempotency and audit layer over the delivery repository.
// One record exists per (dedupe key, channel, destination); a terminal record
// is never re-sent.
type Ledger struct {
	repo   repository.DeliveryRepository
	logger *slog.Logger
}

// NewLedger creates a new Ledger.
func NewLedger(repo repository.DeliveryRepository, logger *slog.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		logger: logger.With("component", "ledger"),
	}
}

// Enqueue guards one channel attempt. Outcomes by pre-existing record state:
//
//	none      -> record created in queued, alreadyHandled=false
//	queued    -> resume after crash-between-enqueue-and-send, alreadyHandled=false
//	failed    -> fresh attempt, record updated in place, alreadyHandled=false
//	sent/delivered -> alreadyHandled=true, no modification
func (l *Ledger) Enqueue(ctx context.Context, event domain.Event, channel domain.Channel, destination string) (*domain.DeliveryRecord, bool, error) {
	key := domain.DeliveryKey(event.EffectiveDedupeKey(), channel, destination)
	record := &domain.DeliveryRecord{
		Key:         key,
		EventID:     event.EventID,
		DedupeKey:   event.EffectiveDedupeKey(),
		UID:         event.UID,
		Channel:     channel,
		Destination: destination,
		Status:      domain.DeliveryStatusQueued,
		CreatedAt:   time.Now().UTC(),
	}

	existing, created, err := l.repo.EnqueueOrGet(ctx, record)
	if err != nil {
		return nil, false, fmt.Errorf("ledger enqueue failed for key '%s': %w", key, err)
	}

	if created {
		return existing, false, nil
	}

	if existing.Status.Terminal() {
		l.logger.InfoContext(ctx, "Delivery already handled, skipping",
			"delivery_key", key, "status", existing.Status)
		return existing, true, nil
	}

	l.logger.InfoContext(ctx, "Resuming existing delivery record",
		"delivery_key", key, "status", existing.Status)
	return existing, false, nil
}

// MarkSent transitions the record to sent and stores the provider outcome.
func (l *Ledger) MarkSent(ctx context.Context, key, providerName, providerMessageID string) error {
	if err := l.repo.UpdateSent(ctx, key, providerName, providerMessageID, time.Now().UTC()); err != nil {
		return fmt.Errorf("ledger mark-sent failed for key '%s': %w", key, err)
	}
	return nil
}

// MarkFailed transitions the record to failed and preserves the error.
func (l *Ledger) MarkFailed(ctx context.Context, key, errorMessage string) error {
	if err := l.repo.UpdateFailed(ctx, key, errorMessage, time.Now().UTC()); err != nil {
		return fmt.Errorf("ledger mark-failed failed for key '%s': %w", key, err)
	}
	return nil
}

// MarkDelivered transitions a sent record to delivered, driven by an
// asynchronous provider callback.
func (l *Ledger) MarkDelivered(ctx context.Context, key string) error {
	if err := l.repo.UpdateDelivered(ctx, key, time.Now().UTC()); err != nil {
		return fmt.Errorf("ledger mark-delivered failed for key '%s': %w", key, err)
	}
	return nil
}
