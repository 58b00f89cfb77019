package template

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) GetBundle(ctx context.Context, locale, eventID string) (*domain.TemplateBundle, error) {
	args := m.Called(ctx, locale, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TemplateBundle), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore_GetBundle_RequestedLocaleHit(t *testing.T) {
	repo := new(MockTemplateRepository)
	bundle := &domain.TemplateBundle{Email: &domain.EmailTemplate{Subject: "Bienvenue {{user.firstName}}"}}
	repo.On("GetBundle", mock.Anything, "fr", "user.signup").Return(bundle, nil).Once()

	store := NewStore(repo, "en", testLogger())
	got, err := store.GetBundle(context.Background(), "fr", "user.signup")

	require.NoError(t, err)
	assert.Same(t, bundle, got)
	repo.AssertExpectations(t)
}

func TestStore_GetBundle_FallsBackToDefaultLocale(t *testing.T) {
	repo := new(MockTemplateRepository)
	fallback := &domain.TemplateBundle{Email: &domain.EmailTemplate{Subject: "Welcome {{user.firstName}}"}}
	repo.On("GetBundle", mock.Anything, "de", "user.signup").Return(nil, repository.ErrTemplateNotFound).Once()
	repo.On("GetBundle", mock.Anything, "en", "user.signup").Return(fallback, nil).Once()

	store := NewStore(repo, "en", testLogger())
	got, err := store.GetBundle(context.Background(), "de", "user.signup")

	require.NoError(t, err)
	assert.Same(t, fallback, got)
	repo.AssertExpectations(t)
}

func TestStore_GetBundle_MissingEverywhereReturnsNilNil(t *testing.T) {
	repo := new(MockTemplateRepository)
	repo.On("GetBundle", mock.Anything, "de", "order.shipped").Return(nil, repository.ErrTemplateNotFound).Once()
	repo.On("GetBundle", mock.Anything, "en", "order.shipped").Return(nil, repository.ErrTemplateNotFound).Once()

	store := NewStore(repo, "en", testLogger())
	got, err := store.GetBundle(context.Background(), "de", "order.shipped")

	require.NoError(t, err)
	assert.Nil(t, got)
	repo.AssertExpectations(t)
}

func TestStore_GetBundle_DefaultLocaleMissSkipsSecondLookup(t *testing.T) {
	repo := new(MockTemplateRepository)
	repo.On("GetBundle", mock.Anything, "en", "order.shipped").Return(nil, repository.ErrTemplateNotFound).Once()

	store := NewStore(repo, "en", testLogger())
	got, err := store.GetBundle(context.Background(), "en", "order.shipped")

	require.NoError(t, err)
	assert.Nil(t, got)
	repo.AssertNumberOfCalls(t, "GetBundle", 1)
}

func TestStore_GetBundle_BackendErrorPropagates(t *testing.T) {
	repo := new(MockTemplateRepository)
	boom := errors.New("connection refused")
	repo.On("GetBundle", mock.Anything, "fr", "user.signup").Return(nil, boom).Once()

	store := NewStore(repo, "en", testLogger())
	got, err := store.GetBundle(context.Background(), "fr", "user.signup")

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}
