package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

type pgInboxRepository struct {
	db *pgxpool.Pool
}

// NewPgInboxRepository creates the PostgreSQL in-app inbox store.
func NewPgInboxRepository(db *pgxpool.Pool) repository.InboxRepository {
	return &pgInboxRepository{db: db}
}

func (r *pgInboxRepository) Insert(ctx context.Context, msg *domain.InAppMessage) error {
	query := `
		INSERT INTO inapp_messages (id, uid, event_id, title, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query, msg.ID, msg.UID, msg.EventID, msg.Title, msg.Body, msg.CreatedAt)
	return err
}

func (r *pgInboxRepository) ListByUser(ctx context.Context, uid string, limit int) ([]*domain.InAppMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, uid, event_id, title, body, created_at, read_at
		FROM inapp_messages
		WHERE uid = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, uid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.InAppMessage
	for rows.Next() {
		var msg domain.InAppMessage
		if err := rows.Scan(&msg.ID, &msg.UID, &msg.EventID, &msg.Title, &msg.Body, &msg.CreatedAt, &msg.ReadAt); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
