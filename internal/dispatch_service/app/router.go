package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

// Router resolves the delivery strategy for an event type.
type Router struct {
	routingRepo repository.RoutingRepository
	logger      *slog.Logger
}

// NewRouter creates a new Router.
func NewRouter(routingRepo repository.RoutingRepository, logger *slog.Logger) *Router {
	return &Router{
		routingRepo: routingRepo,
		logger:      logger.With("component", "router"),
	}
}

// Resolve returns the configured routing entry for eventID, or the safe
// default (email only, parallel, no rate limit) when none is configured.
// Legacy-shape entries arrive already adapted by the repository.
func (r *Router) Resolve(ctx context.Context, eventID string) (domain.RoutingEntry, error) {
	entry, err := r.routingRepo.GetEntry(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrRoutingNotFound) {
			r.logger.DebugContext(ctx, "No routing entry configured, using default", "event_id", eventID)
			return domain.DefaultRoutingEntry(eventID), nil
		}
		return domain.RoutingEntry{}, fmt.Errorf("routing lookup failed for '%s': %w", eventID, err)
	}
	return *entry, nil
}
