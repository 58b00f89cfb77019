package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

// InAppProvider materializes in-app notifications as inbox rows instead of
// calling an external service. The destination is the user id.
type InAppProvider struct {
	inbox  repository.InboxRepository
	logger *slog.Logger
}

// NewInAppProvider creates a new InAppProvider.
func NewInAppProvider(inbox repository.InboxRepository, logger *slog.Logger) *InAppProvider {
	return &InAppProvider{
		inbox:  inbox,
		logger: logger.With("provider", "inapp"),
	}
}

func (p *InAppProvider) Name() string {
	return "inapp"
}

func (p *InAppProvider) Send(ctx context.Context, msg Message) (*SendResult, error) {
	inboxMsg := &domain.InAppMessage{
		ID:        uuid.NewString(),
		UID:       msg.Destination,
		EventID:   msg.EventID,
		Title:     msg.Title,
		Body:      msg.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.inbox.Insert(ctx, inboxMsg); err != nil {
		return nil, &SendError{Provider: p.Name(), Cause: err}
	}

	p.logger.InfoContext(ctx, "In-app message stored",
		"inbox_message_id", inboxMsg.ID, "uid", msg.Destination, "delivery_key", msg.DeliveryKey)
	return &SendResult{
		ProviderMessageID: inboxMsg.ID,
		ProviderStatus:    "stored",
	}, nil
}
