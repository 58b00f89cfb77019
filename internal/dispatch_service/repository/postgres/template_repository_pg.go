package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

type pgTemplateRepository struct {
	db *pgxpool.Pool
}

// NewPgTemplateRepository creates the PostgreSQL template bundle reader.
// Bundles are stored as one JSONB document per (locale, event_id), the shape
// administrators edit directly.
func NewPgTemplateRepository(db *pgxpool.Pool) repository.TemplateRepository {
	return &pgTemplateRepository{db: db}
}

func (r *pgTemplateRepository) GetBundle(ctx context.Context, locale, eventID string) (*domain.TemplateBundle, error) {
	query := `SELECT bundle FROM notification_templates WHERE locale = $1 AND event_id = $2`
	var raw []byte
	err := r.db.QueryRow(ctx, query, locale, eventID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrTemplateNotFound
		}
		return nil, err
	}

	var bundle domain.TemplateBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("malformed template bundle for (%s, %s): %w", locale, eventID, err)
	}
	bundle.Locale = locale
	bundle.EventID = eventID
	return &bundle, nil
}
