package outbox_test

import (
	"errors"
	"testing"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/outbox"
	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEntry(t *testing.T) *outbox.Entry {
	t.Helper()
	e, err := outbox.NewEntry(
		kernel.NewTimeOrderedUUID(),
		kernel.NewUUID(),
		"order-paid",
		"OrderStatusChangedToPaidIntegrationEvent",
		[]byte(`{"orderId":"x"}`),
		map[string]string{"traceparent": "00-abc"},
		createdAt,
	)
	require.NoError(t, err)
	return e
}

func TestNewEntry(t *testing.T) {
	e := newEntry(t)

	require.NoError(t, e.Validate())
	assert.Equal(t, outbox.Pending, e.State())
	assert.Zero(t, e.Attempts())
	assert.Equal(t, createdAt, e.NextAttemptAt())
	assert.Nil(t, e.PublishedAt())
	assert.Equal(t, "00-abc", e.Headers()["traceparent"])
}

func TestNewEntry_Invalid(t *testing.T) {
	_, err := outbox.NewEntry(kernel.UUID{}, kernel.NewUUID(), "", "", nil, nil, createdAt)

	require.Error(t, err)
	assert.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	assert.Contains(t, err.Error(), "topic")
	assert.Contains(t, err.Error(), "event type")
	assert.Contains(t, err.Error(), "payload")
}

func TestEntry_MarkPublished(t *testing.T) {
	e := newEntry(t)
	at := createdAt.Add(time.Second)

	require.NoError(t, e.MarkPublished(at))

	assert.Equal(t, outbox.Published, e.State())
	require.NotNil(t, e.PublishedAt())
	assert.Equal(t, at, *e.PublishedAt())
	require.ErrorIs(t, e.MarkPublished(at), errs.ErrInvalidTransition)
}

func TestEntry_RecordFailedAttempt(t *testing.T) {
	e := newEntry(t)
	cause := errors.New("broker down")

	for attempt := 1; attempt < 3; attempt++ {
		retryAt := createdAt.Add(time.Duration(attempt) * time.Second)

		dead, err := e.RecordFailedAttempt(cause, 3, retryAt)

		require.NoError(t, err)
		assert.False(t, dead)
		assert.Equal(t, outbox.Pending, e.State())
		assert.Equal(t, attempt, e.Attempts())
		assert.Equal(t, retryAt, e.NextAttemptAt())
		assert.Equal(t, "broker down", e.LastError())
	}

	dead, err := e.RecordFailedAttempt(cause, 3, createdAt)

	require.NoError(t, err)
	assert.True(t, dead)
	assert.Equal(t, outbox.Failed, e.State())
	assert.Equal(t, 3, e.Attempts())

	_, err = e.RecordFailedAttempt(cause, 3, createdAt)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestEntry_RecordFailedAttempt_RejectsZeroBudget(t *testing.T) {
	_, err := newEntry(t).RecordFailedAttempt(nil, 0, createdAt)
	require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
}

func TestEntry_Requeue(t *testing.T) {
	e := newEntry(t)
	require.ErrorIs(t, e.Requeue(createdAt), errs.ErrInvalidTransition)

	_, err := e.RecordFailedAttempt(errors.New("boom"), 1, createdAt)
	require.NoError(t, err)
	require.Equal(t, outbox.Failed, e.State())

	now := createdAt.Add(time.Hour)
	require.NoError(t, e.Requeue(now))

	assert.Equal(t, outbox.Pending, e.State())
	assert.Zero(t, e.Attempts())
	assert.Equal(t, now, e.NextAttemptAt())
}

func TestRestoreEntry(t *testing.T) {
	snapshot := newEntry(t).Snapshot()
	snapshot.Sequence = 42
	snapshot.State = outbox.Failed
	snapshot.Attempts = 5

	e, err := outbox.RestoreEntry(snapshot)

	require.NoError(t, err)
	assert.Equal(t, int64(42), e.Sequence())
	assert.Equal(t, outbox.Failed, e.State())
	assert.Equal(t, 5, e.Attempts())

	snapshot.State = outbox.Unknown
	_, err = outbox.RestoreEntry(snapshot)
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestParseState(t *testing.T) {
	state, err := outbox.ParseState("failed")
	require.NoError(t, err)
	assert.Equal(t, outbox.Failed, state)

	state, err = outbox.ParseState("Pending")
	require.NoError(t, err)
	assert.Equal(t, outbox.Pending, state)

	_, err = outbox.ParseState("unknown")
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}
