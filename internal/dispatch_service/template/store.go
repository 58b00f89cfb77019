package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

// Store resolves a (locale, eventID) pair to a template bundle, falling back
// to the default locale before reporting "no template".
type Store struct {
	repo          repository.TemplateRepository
	defaultLocale string
	logger        *slog.Logger
}

// NewStore creates a new Store.
func NewStore(repo repository.TemplateRepository, defaultLocale string, logger *slog.Logger) *Store {
	return &Store{
		repo:          repo,
		defaultLocale: defaultLocale,
		logger:        logger.With("component", "template_store"),
	}
}

// GetBundle returns the bundle for the requested locale, retrying with the
// default locale when the requested one has none. A (nil, nil) return means
// neither lookup succeeded; a non-nil error means the backing store failed.
func (s *Store) GetBundle(ctx context.Context, locale, eventID string) (*domain.TemplateBundle, error) {
	bundle, err := s.repo.GetBundle(ctx, locale, eventID)
	if err == nil {
		return bundle, nil
	}
	if !errors.Is(err, repository.ErrTemplateNotFound) {
		return nil, fmt.Errorf("template lookup failed for locale '%s': %w", locale, err)
	}

	if locale == s.defaultLocale {
		return nil, nil
	}

	s.logger.DebugContext(ctx, "No template bundle for requested locale, falling back to default",
		"locale", locale, "default_locale", s.defaultLocale, "event_id", eventID)

	bundle, err = s.repo.GetBundle(ctx, s.defaultLocale, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("template lookup failed for default locale '%s': %w", s.defaultLocale, err)
	}
	return bundle, nil
}
