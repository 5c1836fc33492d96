package http_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	server "ordering/internal/adapters/in/http"
	"ordering/internal/adapters/out/memory"
	"ordering/internal/core/application/domaineventhandlers"
	"ordering/internal/core/application/integrationevents"
	"ordering/internal/core/application/usecases/commands"
	"ordering/internal/core/application/usecases/queries"
	"ordering/internal/core/domain/model/buyer"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/model/outbox"
	"ordering/internal/pkg/clock"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	echo  *echo.Echo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.NewMockClock(now)
	logger := slog.Default()

	dispatcher := domaineventhandlers.NewOrderStatusDispatcher(integrationevents.DefaultTopics(), clk, logger)
	changeStatus, err := commands.NewChangeOrderStatusCommandHandler(store, dispatcher, commands.ChangeOrderStatusConfig{}, logger)
	require.NoError(t, err)
	requeue, err := commands.NewRequeueOutboxEntryCommandHandler(store, clk, logger)
	require.NoError(t, err)

	e := echo.New()
	server.NewServer(
		changeStatus,
		requeue,
		queries.NewGetOrderQueryHandler(store),
		queries.NewListOutboxEntriesQueryHandler(store),
		logger,
	).Register(e)

	return &fixture{store: store, echo: e}
}

func (f *fixture) seedOrder(t *testing.T, status order.Status) kernel.UUID {
	t.Helper()
	ctx := context.Background()

	b, err := buyer.NewBuyer(kernel.NewUUID(), "Alice")
	require.NoError(t, err)
	item, err := order.NewItem(11, "Hoodie", 2, 1950)
	require.NoError(t, err)
	o, err := order.RestoreOrder(kernel.NewUUID(), b.ID(), []order.Item{item}, status, 1)
	require.NoError(t, err)

	uow := f.store.Create()
	require.NoError(t, uow.BuyerRepository().Add(ctx, b))
	require.NoError(t, uow.OrderRepository().Add(ctx, o))
	return o.ID()
}

func (f *fixture) seedEntry(t *testing.T, state outbox.State) kernel.UUID {
	t.Helper()
	e, err := outbox.RestoreEntry(outbox.Snapshot{
		EventID:       kernel.NewUUID(),
		AggregateID:   kernel.NewUUID(),
		Topic:         "order-paid",
		EventType:     "OrderStatusChangedToPaidIntegrationEvent",
		Payload:       []byte(`{}`),
		State:         state,
		Attempts:      3,
		LastError:     "broker unavailable",
		CreatedAt:     now,
		NextAttemptAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Create().OutboxRepository().Append(context.Background(), e))
	return e.EventID()
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rec := newFixture(t).do(http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Healthy", rec.Body.String())
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	id := f.seedOrder(t, order.Paid)

	rec := f.do(http.MethodGet, "/api/v1/orders/"+id.String())

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[server.Order](t, rec)
	assert.Equal(t, id.String(), got.ID)
	assert.Equal(t, "Alice", got.BuyerName)
	assert.Equal(t, "Paid", got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, int64(3900), got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Hoodie", got.Items[0].ProductName)
}

func TestGetOrder_Errors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/orders/not-a-uuid").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/orders/"+kernel.NewUUID().String()).Code)
}

func TestShipOrder(t *testing.T) {
	f := newFixture(t)
	id := f.seedOrder(t, order.Paid)

	rec := f.do(http.MethodPost, "/api/v1/orders/"+id.String()+"/ship")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[server.CommandResult](t, rec).Applied)

	rec = f.do(http.MethodPost, "/api/v1/orders/"+id.String()+"/ship")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, decode[server.CommandResult](t, rec).Applied)

	rec = f.do(http.MethodGet, "/api/v1/outbox?state=pending")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]server.OutboxEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, id.String(), entries[0].OrderID)
	assert.Equal(t, "order-shipped", entries[0].Topic)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)

	t.Run("cancels a paid order", func(t *testing.T) {
		id := f.seedOrder(t, order.Paid)
		assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel").Code)
	})

	t.Run("shipped order cannot be cancelled", func(t *testing.T) {
		id := f.seedOrder(t, order.Shipped)

		rec := f.do(http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel")

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, http.StatusConflict, decode[server.Error](t, rec).Code)
	})

	t.Run("missing order", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/v1/orders/"+kernel.NewUUID().String()+"/cancel")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestChangeStatus_StoreFailureIsUnavailable(t *testing.T) {
	f := newFixture(t)
	id := f.seedOrder(t, order.Paid)
	f.store.FailNextCommit(errors.New("connection reset"))

	rec := f.do(http.MethodPost, "/api/v1/orders/"+id.String()+"/ship")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListOutboxEntries(t *testing.T) {
	f := newFixture(t)
	failed := f.seedEntry(t, outbox.Failed)
	f.seedEntry(t, outbox.Pending)

	t.Run("defaults to failed", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/v1/outbox")

		require.Equal(t, http.StatusOK, rec.Code)
		entries := decode[[]server.OutboxEntry](t, rec)
		require.Len(t, entries, 1)
		assert.Equal(t, failed.String(), entries[0].EventID)
		assert.Equal(t, "Failed", entries[0].State)
		assert.Equal(t, 3, entries[0].Attempts)
		assert.Equal(t, "broker unavailable", entries[0].LastError)
	})

	t.Run("rejects bad parameters", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/outbox?state=lost").Code)
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/outbox?limit=x").Code)
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/outbox?limit=-1").Code)
	})
}

func TestRequeueOutboxEntry(t *testing.T) {
	f := newFixture(t)
	failed := f.seedEntry(t, outbox.Failed)
	pending := f.seedEntry(t, outbox.Pending)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/api/v1/outbox/"+failed.String()+"/requeue").Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/v1/outbox/"+pending.String()+"/requeue").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/v1/outbox/"+kernel.NewUUID().String()+"/requeue").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/outbox/nope/requeue").Code)

	e, err := f.store.Create().OutboxRepository().Get(context.Background(), failed)
	require.NoError(t, err)
	assert.Equal(t, outbox.Pending, e.State())
	assert.Zero(t, e.Attempts())
}
