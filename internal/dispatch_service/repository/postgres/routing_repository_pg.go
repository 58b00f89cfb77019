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

type pgRoutingRepository struct {
	db *pgxpool.Pool
}

// NewPgRoutingRepository creates the PostgreSQL routing entry reader.
// Entries are one JSONB document per event_id. Documents written before the
// per-channel schema use the legacy flat shape; both decode here.
func NewPgRoutingRepository(db *pgxpool.Pool) repository.RoutingRepository {
	return &pgRoutingRepository{db: db}
}

func (r *pgRoutingRepository) GetEntry(ctx context.Context, eventID string) (*domain.RoutingEntry, error) {
	query := `SELECT entry FROM notification_routing WHERE event_id = $1`
	var raw []byte
	err := r.db.QueryRow(ctx, query, eventID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrRoutingNotFound
		}
		return nil, err
	}
	return decodeRoutingEntry(eventID, raw)
}

// decodeRoutingEntry decides between the canonical and legacy stored shapes.
// Legacy documents carry "channels" as a flat array of names; canonical ones
// carry it as an object keyed by channel.
func decodeRoutingEntry(eventID string, raw []byte) (*domain.RoutingEntry, error) {
	var probe struct {
		Channels json.RawMessage `json:"channels"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("malformed routing entry for %s: %w", eventID, err)
	}

	if len(probe.Channels) > 0 && probe.Channels[0] == '[' {
		var legacy domain.LegacyRoutingEntry
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("malformed legacy routing entry for %s: %w", eventID, err)
		}
		entry := domain.AdaptLegacyRouting(eventID, legacy)
		return &entry, nil
	}

	var entry domain.RoutingEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("malformed routing entry for %s: %w", eventID, err)
	}
	entry.EventID = eventID
	return &entry, nil
}
