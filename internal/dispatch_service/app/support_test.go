package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/provider"
	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryDeliveryRepo mirrors the Postgres repository's transactional
// semantics in memory: conditional create, read-back, and the same status
// transition guards.
type memoryDeliveryRepo struct {
	mu      sync.Mutex
	records map[string]*domain.DeliveryRecord
}

func newMemoryDeliveryRepo() *memoryDeliveryRepo {
	return &memoryDeliveryRepo{records: make(map[string]*domain.DeliveryRecord)}
}

func (r *memoryDeliveryRepo) clone(rec *domain.DeliveryRecord) *domain.DeliveryRecord {
	c := *rec
	return &c
}

func (r *memoryDeliveryRepo) EnqueueOrGet(_ context.Context, record *domain.DeliveryRecord) (*domain.DeliveryRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[record.Key]; ok {
		return r.clone(existing), false, nil
	}
	r.records[record.Key] = r.clone(record)
	return r.clone(record), true, nil
}

func (r *memoryDeliveryRepo) Get(_ context.Context, key string) (*domain.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, repository.ErrDeliveryNotFound
	}
	return r.clone(rec), nil
}

func (r *memoryDeliveryRepo) GetByProviderMessageID(_ context.Context, providerMessageID string) (*domain.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ProviderMessageID != nil && *rec.ProviderMessageID == providerMessageID {
			return r.clone(rec), nil
		}
	}
	return nil, repository.ErrDeliveryNotFound
}

func (r *memoryDeliveryRepo) UpdateSent(_ context.Context, key, providerName, providerMessageID string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return repository.ErrDeliveryNotFound
	}
	rec.Status = domain.DeliveryStatusSent
	rec.ProviderName = providerName
	rec.ProviderMessageID = &providerMessageID
	rec.Error = nil
	if rec.SentAt == nil {
		rec.SentAt = &sentAt
	}
	return nil
}

func (r *memoryDeliveryRepo) UpdateFailed(_ context.Context, key, errorMessage string, failedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return repository.ErrDeliveryNotFound
	}
	rec.Status = domain.DeliveryStatusFailed
	rec.Error = &errorMessage
	rec.FailedAt = &failedAt
	return nil
}

func (r *memoryDeliveryRepo) UpdateDelivered(_ context.Context, key string, deliveredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok || !rec.Status.Terminal() {
		return repository.ErrDeliveryNotFound
	}
	rec.Status = domain.DeliveryStatusDelivered
	if rec.DeliveredAt == nil {
		rec.DeliveredAt = &deliveredAt
	}
	return nil
}

func (r *memoryDeliveryRepo) HasAttemptSince(_ context.Context, uid, eventID string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.UID == uid && rec.EventID == eventID &&
			rec.Status != domain.DeliveryStatusFailed && !rec.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryDeliveryRepo) ListByUser(_ context.Context, uid, eventID string, limit int) ([]*domain.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.DeliveryRecord, 0)
	for _, rec := range r.records {
		if rec.UID != uid {
			continue
		}
		if eventID != "" && rec.EventID != eventID {
			continue
		}
		out = append(out, r.clone(rec))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memoryDeliveryRepo) seed(rec domain.DeliveryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Key] = &rec
}

type stubSettingsRepo struct {
	enabled bool
	err     error
}

func (s *stubSettingsRepo) MessagingEnabled(context.Context) (bool, error) {
	return s.enabled, s.err
}

type stubRoutingRepo struct {
	entry *domain.RoutingEntry
	err   error
}

func (s *stubRoutingRepo) GetEntry(context.Context, string) (*domain.RoutingEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entry, nil
}

type stubTemplateRepo struct {
	bundles map[string]*domain.TemplateBundle // keyed by locale
}

func (s *stubTemplateRepo) GetBundle(_ context.Context, locale, _ string) (*domain.TemplateBundle, error) {
	if b, ok := s.bundles[locale]; ok {
		return b, nil
	}
	return nil, repository.ErrTemplateNotFound
}

// fakeAdapter records every message it receives and fails on demand.
type fakeAdapter struct {
	mu       sync.Mutex
	name     string
	fail     bool
	calls    int
	messages []provider.Message
}

func (f *fakeAdapter) Send(_ context.Context, msg provider.Message) (*provider.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.messages = append(f.messages, msg)
	if f.fail {
		return nil, &provider.SendError{Provider: f.name, StatusCode: 500, Cause: context.DeadlineExceeded}
	}
	return &provider.SendResult{ProviderMessageID: f.name + "-msg-1", ProviderStatus: "accepted"}, nil
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAdapter) lastMessage() provider.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return provider.Message{}
	}
	return f.messages[len(f.messages)-1]
}
