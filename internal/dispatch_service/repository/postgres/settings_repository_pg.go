package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

type pgSettingsRepository struct {
	db             *pgxpool.Pool
	defaultEnabled bool
}

// NewPgSettingsRepository creates the operational settings reader. When the
// messaging_enabled row is absent, defaultEnabled applies.
func NewPgSettingsRepository(db *pgxpool.Pool, defaultEnabled bool) repository.SettingsRepository {
	return &pgSettingsRepository{db: db, defaultEnabled: defaultEnabled}
}

func (r *pgSettingsRepository) MessagingEnabled(ctx context.Context) (bool, error) {
	query := `SELECT bool_value FROM app_settings WHERE key = 'messaging_enabled'`
	var enabled bool
	err := r.db.QueryRow(ctx, query).Scan(&enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.defaultEnabled, nil
		}
		return false, err
	}
	return enabled, nil
}
