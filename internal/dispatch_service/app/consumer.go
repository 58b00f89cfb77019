package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/platform/messagebroker"
)

// EventConsumer feeds notification events from NATS into the dispatcher.
// The trigger source delivers at least once; the dispatcher's ledger makes
// duplicate invocations harmless.
type EventConsumer struct {
	natsClient *messagebroker.NatsClient
	dispatcher *Dispatcher
	validate   *validator.Validate
	logger     *slog.Logger
	jobTimeout time.Duration
	natsSub    *nats.Subscription
}

// NewEventConsumer creates a new EventConsumer.
func NewEventConsumer(natsClient *messagebroker.NatsClient, dispatcher *Dispatcher, logger *slog.Logger) *EventConsumer {
	return &EventConsumer{
		natsClient: natsClient,
		dispatcher: dispatcher,
		validate:   validator.New(),
		logger:     logger.With("component", "event_consumer"),
		jobTimeout: 60 * time.Second,
	}
}

// Start subscribes to the event subject with a queue group so concurrent
// workers share the load.
func (c *EventConsumer) Start(ctx context.Context, subject, queueGroup string) error {
	if c.natsClient == nil {
		return errors.New("NATS client not initialized in EventConsumer")
	}
	c.logger.Info("Starting NATS event consumer", "subject", subject, "queue_group", queueGroup)

	msgHandler := func(msg *nats.Msg) {
		natsEventsReceivedCounter.WithLabelValues(msg.Subject).Inc()

		var event domain.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			c.logger.Error("Failed to unmarshal event payload, dropping", "error", err, "data_len", len(msg.Data))
			return
		}
		if err := c.validate.Struct(event); err != nil {
			c.logger.Error("Invalid event payload, dropping", "error", err, "event_id", event.EventID)
			return
		}

		// Each event gets its own context so one slow provider cannot pin
		// the subscription goroutine forever.
		jobCtx, cancel := context.WithTimeout(context.Background(), c.jobTimeout)
		defer cancel()

		if _, err := c.dispatcher.Dispatch(jobCtx, event); err != nil {
			c.logger.Error("Failed to dispatch event", "error", err, "event_id", event.EventID)
			// No nack path on core NATS; retry happens by re-publishing an
			// equivalent event and relying on the ledger to skip sent channels.
		}
	}

	var err error
	c.natsSub, err = c.natsClient.Subscribe(ctx, subject, queueGroup, msgHandler)
	if err != nil {
		return fmt.Errorf("failed to subscribe to NATS subject '%s': %w", subject, err)
	}
	return nil
}

// Stop unsubscribes from NATS.
func (c *EventConsumer) Stop() {
	if c.natsSub != nil && c.natsSub.IsValid() {
		c.logger.Info("Unsubscribing from NATS event subject", "subject", c.natsSub.Subject)
		if err := c.natsSub.Unsubscribe(); err != nil {
			c.logger.Error("Failed to unsubscribe from NATS", "error", err, "subject", c.natsSub.Subject)
		}
	}
}
