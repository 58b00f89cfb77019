package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
)

func signupEvent() domain.Event {
	return domain.Event{
		EventID:   "user.signup",
		UID:       "uid-42",
		DedupeKey: "signup-42",
	}
}

func TestLedger_Enqueue_CreatesQueuedRecord(t *testing.T) {
	repo := newMemoryDeliveryRepo()
	ledger := NewLedger(repo, testLogger())

	record, alreadyHandled, err := ledger.Enqueue(context.Background(), signupEvent(), domain.ChannelEmail, "w@example.com")

	require.NoError(t, err)
	assert.False(t, alreadyHandled)
	assert.Equal(t, "signup-42|email|w@example.com", record.Key)
	assert.Equal(t, domain.DeliveryStatusQueued, record.Status)
	assert.Equal(t, "user.signup", record.EventID)
	assert.Equal(t, "uid-42", record.UID)
	assert.Equal(t, "w@example.com", record.Destination)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestLedger_Enqueue_TerminalRecordIsNotRetouched(t *testing.T) {
	repo := newMemoryDeliveryRepo()
	ledger := NewLedger(repo, testLogger())
	ctx := context.Background()

	record, _, err := ledger.Enqueue(ctx, signupEvent(), domain.ChannelEmail, "w@example.com")
	require.NoError(t, err)
	require.NoError(t, ledger.MarkSent(ctx, record.Key, "zeptomail", "zepto-1"))

	again, alreadyHandled, err := ledger.Enqueue(ctx, signupEvent(), domain.ChannelEmail, "w@example.com")
	require.NoError(t, err)
	assert.True(t, alreadyHandled)
	assert.Equal(t, domain.DeliveryStatusSent, again.Status)
}

func TestLedger_Enqueue_QueuedRecordIsResumed(t *testing.T) {
	repo := newMemoryDeliveryRepo()
	ledger := NewLedger(repo, testLogger())
	ctx := context.Background()

	first, _, err := ledger.Enqueue(ctx, signupEvent(), domain.ChannelSMS, "+33612345678")
	require.NoError(t, err)

	// Crash between enqueue and send: the next invocation picks the record
	// back up instead of skipping it.
	second, alreadyHandled, err := ledger.Enqueue(ctx, signupEvent(), domain.ChannelSMS, "+33612345678")
	require.NoError(t, err)
	assert.False(t, alreadyHandled)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, domain.DeliveryStatusQueued, second.Status)
}

func TestLedger_Enqueue_FailedRecordAllowsRetry(t *testing.T) {
	repo := newMemoryDeliveryRepo()
	ledger := NewLedger(repo, testLogger())
	ctx := context.Background()

	record, _, err := ledger.Enqueue(ctx, signupEvent(), domain.ChannelEmail, "w@example.com")
	require.NoError(t, err)
	require.NoError(t, ledger.MarkFailed(ctx, record.Key, "smtp timeout"))

	_, alreadyHandled, err := ledger.Enqueue(ctx, signupEvent(), domain.ChannelEmail, "w@example.com")
	require.NoError(t, err)
	assert.False(t, alreadyHandled)

	require.NoError(t, ledger.MarkSent(ctx, record.Key, "zeptomail", "zepto-2"))
	stored, err := repo.Get(ctx, record.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusSent, stored.Status)
	assert.Nil(t, stored.Error)
	require.NotNil(t, stored.ProviderMessageID)
	assert.Equal(t, "zepto-2", *stored.ProviderMessageID)
}

func TestLedger_MarkSent_SetsTimestampOnce(t *testing.T) {
	repo := newMemoryDeliveryRepo()
	ledger := NewLedger(repo, testLogger())
	ctx := context.Background()

	record, _, err := ledger.Enqueue(ctx, signupEvent(), domain.ChannelEmail, "w@example.com")
	require.NoError(t, err)

	require.NoError(t, ledger.MarkSent(ctx, record.Key, "zeptomail", "zepto-1"))
	first, err := repo.Get(ctx, record.Key)
	require.NoError(t, err)
	require.NotNil(t, first.SentAt)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, ledger.MarkSent(ctx, record.Key, "zeptomail", "zepto-1"))
	second, err := repo.Get(ctx, record.Key)
	require.NoError(t, err)
	assert.Equal(t, *first.SentAt, *second.SentAt)
}

func TestLedger_MarkDelivered_RequiresSentRecord(t *testing.T) {
	repo := newMemoryDeliveryRepo()
	ledger := NewLedger(repo, testLogger())
	ctx := context.Background()

	record, _, err := ledger.Enqueue(ctx, signupEvent(), domain.ChannelEmail, "w@example.com")
	require.NoError(t, err)

	// queued -> delivered is not a legal transition.
	assert.Error(t, ledger.MarkDelivered(ctx, record.Key))

	require.NoError(t, ledger.MarkSent(ctx, record.Key, "zeptomail", "zepto-1"))
	require.NoError(t, ledger.MarkDelivered(ctx, record.Key))

	stored, err := repo.Get(ctx, record.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusDelivered, stored.Status)
	assert.NotNil(t, stored.DeliveredAt)
}
