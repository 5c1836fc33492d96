package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ordering/internal/adapters/out/memory"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/model/outbox"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func newOrder(t *testing.T) *order.Order {
	t.Helper()
	item, err := order.NewItem(1, "Mug", 1, 500)
	require.NoError(t, err)
	o, err := order.NewOrder(kernel.NewUUID(), kernel.NewUUID(), []order.Item{item})
	require.NoError(t, err)
	return o
}

func newEntry(t *testing.T, aggregateID kernel.UUID, createdAt time.Time) *outbox.Entry {
	t.Helper()
	e, err := outbox.NewEntry(kernel.NewTimeOrderedUUID(), aggregateID, "order-paid", "T", []byte("{}"), nil, createdAt)
	require.NoError(t, err)
	return e
}

func TestUnitOfWork_RollbackDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	o := newOrder(t)

	uow := store.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.OrderRepository().Add(ctx, o))
	require.NoError(t, uow.Rollback(ctx))

	_, err := store.Create().OrderRepository().Get(ctx, o.ID())
	require.ErrorIs(t, err, errs.ErrObjectNotFound)
}

func TestUnitOfWork_FailedCommitDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	o := newOrder(t)
	store.FailNextCommit(errors.New("disk full"))

	uow := store.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.OrderRepository().Add(ctx, o))
	require.NoError(t, uow.OutboxRepository().Append(ctx, newEntry(t, o.ID(), now)))
	require.EqualError(t, uow.Commit(ctx), "disk full")
	require.ErrorIs(t, uow.Rollback(ctx), memory.ErrNoTransaction)

	_, err := store.Create().OrderRepository().Get(ctx, o.ID())
	require.ErrorIs(t, err, errs.ErrObjectNotFound)
	pending, err := store.Create().OutboxRepository().ListByState(ctx, outbox.Pending, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOrderRepository_OptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	o := newOrder(t)
	repo := store.Create().OrderRepository()
	require.NoError(t, repo.Add(ctx, o))

	first, err := repo.Get(ctx, o.ID())
	require.NoError(t, err)
	second, err := repo.Get(ctx, o.ID())
	require.NoError(t, err)

	require.NoError(t, first.SetAwaitingValidationStatus())
	require.NoError(t, repo.Update(ctx, first))

	require.NoError(t, second.Cancel())
	require.ErrorIs(t, repo.Update(ctx, second), errs.ErrConflict)

	stored, err := repo.Get(ctx, o.ID())
	require.NoError(t, err)
	assert.Equal(t, order.AwaitingValidation, stored.Status())
	assert.Equal(t, int64(2), stored.Version())
}

func TestOutboxRepository_ClaimPendingHeadOfOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Create().OutboxRepository()
	a, b := kernel.NewUUID(), kernel.NewUUID()

	a1, a2 := newEntry(t, a, now), newEntry(t, a, now)
	b1 := newEntry(t, b, now.Add(time.Second))
	require.NoError(t, repo.Append(ctx, a1, a2, b1))

	claim := ports.OutboxClaim{Owner: "relay-1", Limit: 10, LeaseFor: time.Minute, Now: now.Add(time.Minute)}
	claimed, err := repo.ClaimPending(ctx, claim)
	require.NoError(t, err)
	require.Len(t, claimed, 3)
	assert.True(t, claimed[0].EventID().IsEqual(a1.EventID()))
	assert.True(t, claimed[1].EventID().IsEqual(a2.EventID()))
	assert.True(t, claimed[2].EventID().IsEqual(b1.EventID()))

	// everything is leased now
	claim.Owner = "relay-2"
	again, err := repo.ClaimPending(ctx, claim)
	require.NoError(t, err)
	assert.Empty(t, again)

	// a dead-lettered head blocks the rest of its order
	_, err = claimed[0].RecordFailedAttempt(errors.New("boom"), 1, now)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, claimed[0], "relay-1"))
	require.NoError(t, repo.Release(ctx, "relay-1", []kernel.UUID{a2.EventID(), b1.EventID()}))

	again, err = repo.ClaimPending(ctx, claim)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.True(t, again[0].EventID().IsEqual(b1.EventID()))
}

func TestOutboxRepository_ClaimFollowsAppendOrderDespiteClockSkew(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Create().OutboxRepository()
	orderID := kernel.NewUUID()

	stockConfirmed := newEntry(t, orderID, now)
	require.NoError(t, repo.Append(ctx, stockConfirmed))
	// written later by a replica whose clock lags behind
	paid := newEntry(t, orderID, now.Add(-time.Minute))
	require.NoError(t, repo.Append(ctx, paid))

	claimed, err := repo.ClaimPending(ctx, ports.OutboxClaim{
		Owner: "relay-1", Limit: 10, LeaseFor: time.Minute, Now: now.Add(time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.True(t, claimed[0].EventID().IsEqual(stockConfirmed.EventID()))
	assert.True(t, claimed[1].EventID().IsEqual(paid.EventID()))

	pending, err := repo.ListByState(ctx, outbox.Pending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.True(t, pending[0].EventID().IsEqual(stockConfirmed.EventID()))
}

func TestOutboxRepository_UpdateRequiresLease(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := store.Create().OutboxRepository()
	e := newEntry(t, kernel.NewUUID(), now)
	require.NoError(t, repo.Append(ctx, e))

	claimed, err := repo.ClaimPending(ctx, ports.OutboxClaim{Owner: "relay-1", Limit: 1, LeaseFor: time.Minute, Now: now})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, claimed[0].MarkPublished(now))

	require.ErrorIs(t, repo.Update(ctx, claimed[0], "relay-2"), errs.ErrConflict)
	require.NoError(t, repo.Update(ctx, claimed[0], "relay-1"))

	deleted, err := repo.DeletePublishedBefore(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestBus_FailNext(t *testing.T) {
	ctx := context.Background()
	bus := memory.NewBus()
	bus.FailNext(2, errors.New("broker down"))

	msg := ports.OutboundMessage{Topic: "t", Key: "k", Payload: []byte("x")}
	require.Error(t, bus.Publish(ctx, msg))
	require.Error(t, bus.Publish(ctx, msg))
	require.NoError(t, bus.Publish(ctx, msg))

	assert.Equal(t, 3, bus.Attempts())
	assert.Len(t, bus.Published(), 1)
}
