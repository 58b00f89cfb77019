package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

type pgDeliveryRepository struct {
	db *pgxpool.Pool
}

// NewPgDeliveryRepository creates the PostgreSQL delivery ledger.
func NewPgDeliveryRepository(db *pgxpool.Pool) repository.DeliveryRepository {
	return &pgDeliveryRepository{db: db}
}

const deliveryColumns = `
	key, event_id, dedupe_key, uid, channel, destination, status,
	provider_name, provider_message_id, error_message,
	created_at, sent_at, failed_at, delivered_at`

func scanDelivery(row pgx.Row) (*domain.DeliveryRecord, error) {
	rec := &domain.DeliveryRecord{}
	err := row.Scan(
		&rec.Key, &rec.EventID, &rec.DedupeKey, &rec.UID, &rec.Channel, &rec.Destination, &rec.Status,
		&rec.ProviderName, &rec.ProviderMessageID, &rec.Error,
		&rec.CreatedAt, &rec.SentAt, &rec.FailedAt, &rec.DeliveredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrDeliveryNotFound
		}
		return nil, err
	}
	return rec, nil
}

// EnqueueOrGet performs the atomic conditional create the at-most-one-send
// invariant rests on: the conditional insert and the read-back run inside one
// transaction, so concurrent dispatchers racing on the same key observe
// exactly one created record.
func (r *pgDeliveryRepository) EnqueueOrGet(ctx context.Context, record *domain.DeliveryRecord) (*domain.DeliveryRecord, bool, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Status == "" {
		record.Status = domain.DeliveryStatusQueued
	}

	var existing *domain.DeliveryRecord
	var created bool
	txErr := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		insertQuery := `
			INSERT INTO delivery_records (
				key, event_id, dedupe_key, uid, channel, destination, status, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (key) DO NOTHING`
		tag, err := tx.Exec(ctx, insertQuery,
			record.Key, record.EventID, record.DedupeKey, record.UID,
			record.Channel, record.Destination, record.Status, record.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("conditional insert failed: %w", err)
		}
		created = tag.RowsAffected() == 1

		selectQuery := `SELECT` + deliveryColumns + ` FROM delivery_records WHERE key = $1`
		existing, err = scanDelivery(tx.QueryRow(ctx, selectQuery, record.Key))
		if err != nil {
			return fmt.Errorf("read-back failed: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, false, txErr
	}
	return existing, created, nil
}

func (r *pgDeliveryRepository) Get(ctx context.Context, key string) (*domain.DeliveryRecord, error) {
	query := `SELECT` + deliveryColumns + ` FROM delivery_records WHERE key = $1`
	return scanDelivery(r.db.QueryRow(ctx, query, key))
}

func (r *pgDeliveryRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.DeliveryRecord, error) {
	query := `SELECT` + deliveryColumns + ` FROM delivery_records WHERE provider_message_id = $1`
	return scanDelivery(r.db.QueryRow(ctx, query, providerMessageID))
}

func (r *pgDeliveryRepository) UpdateSent(ctx context.Context, key, providerName, providerMessageID string, sentAt time.Time) error {
	// sent_at is set at most once; a prior error from a failed attempt is
	// cleared because the record now represents a successful send.
	query := `
		UPDATE delivery_records
		SET status = $2, provider_name = $3, provider_message_id = $4,
		    sent_at = COALESCE(sent_at, $5), error_message = NULL
		WHERE key = $1`
	tag, err := r.db.Exec(ctx, query, key, domain.DeliveryStatusSent, providerName, providerMessageID, sentAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrDeliveryNotFound
	}
	return nil
}

func (r *pgDeliveryRepository) UpdateFailed(ctx context.Context, key, errorMessage string, failedAt time.Time) error {
	query := `
		UPDATE delivery_records
		SET status = $2, error_message = $3, failed_at = COALESCE(failed_at, $4)
		WHERE key = $1`
	tag, err := r.db.Exec(ctx, query, key, domain.DeliveryStatusFailed, errorMessage, failedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrDeliveryNotFound
	}
	return nil
}

func (r *pgDeliveryRepository) UpdateDelivered(ctx context.Context, key string, deliveredAt time.Time) error {
	// Only a sent record can become delivered; the guard also makes the
	// callback idempotent.
	query := `
		UPDATE delivery_records
		SET status = $2, delivered_at = COALESCE(delivered_at, $3)
		WHERE key = $1 AND status IN ($4, $5)`
	tag, err := r.db.Exec(ctx, query, key,
		domain.DeliveryStatusDelivered, deliveredAt,
		domain.DeliveryStatusSent, domain.DeliveryStatusDelivered)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrDeliveryNotFound
	}
	return nil
}

func (r *pgDeliveryRepository) HasAttemptSince(ctx context.Context, uid, eventID string, since time.Time) (bool, error) {
	// A purely failed attempt does not count against the rate limit.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM delivery_records
			WHERE uid = $1 AND event_id = $2 AND created_at >= $3
			  AND status IN ($4, $5, $6)
		)`
	var exists bool
	err := r.db.QueryRow(ctx, query, uid, eventID, since,
		domain.DeliveryStatusQueued, domain.DeliveryStatusSent, domain.DeliveryStatusDelivered,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *pgDeliveryRepository) ListByUser(ctx context.Context, uid, eventID string, limit int) ([]*domain.DeliveryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT` + deliveryColumns + `
		FROM delivery_records
		WHERE uid = $1 AND ($2 = '' OR event_id = $2)
		ORDER BY created_at DESC
		LIMIT $3`
	rows, err := r.db.Query(ctx, query, uid, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.DeliveryRecord
	for rows.Next() {
		rec, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
