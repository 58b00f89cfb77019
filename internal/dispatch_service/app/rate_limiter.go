package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

// RateLimiter suppresses repeat notifications for the same (user, event type)
// within a trailing window, based on delivery history. In-flight and
// successful attempts count against the limit; purely failed attempts do not.
type RateLimiter struct {
	deliveryRepo repository.DeliveryRepository
	logger       *slog.Logger
}

// NewRateLimiter creates a new RateLimiter.
func NewRateLimiter(deliveryRepo repository.DeliveryRepository, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		deliveryRepo: deliveryRepo,
		logger:       logger.With("component", "rate_limiter"),
	}
}

// IsLimited reports whether the (uid, eventID) pair has a counting attempt
// within the trailing window. A window of zero or less disables limiting, as
// does an absent uid (nothing to key history on).
func (rl *RateLimiter) IsLimited(ctx context.Context, uid, eventID string, windowHours int) (bool, error) {
	if windowHours <= 0 || uid == "" {
		return false, nil
	}

	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	limited, err := rl.deliveryRepo.HasAttemptSince(ctx, uid, eventID, since)
	if err != nil {
		return false, fmt.Errorf("rate limit lookup failed for (%s, %s): %w", uid, eventID, err)
	}
	if limited {
		rl.logger.InfoContext(ctx, "Event rate limited",
			"uid", uid, "event_id", eventID, "window_hours", windowHours)
	}
	return limited, nil
}
