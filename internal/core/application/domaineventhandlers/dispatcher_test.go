package domaineventhandlers_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"ordering/internal/adapters/out/memory"
	"ordering/internal/core/application/domaineventhandlers"
	"ordering/internal/core/application/integrationevents"
	"ordering/internal/core/domain/model/buyer"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/model/outbox"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/clock"
	"ordering/internal/pkg/errs"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var now = time.Date(2026, 2, 2, 10, 30, 0, 0, time.UTC)

func seed(t *testing.T, uow ports.UnitOfWork, status order.Status, withBuyer bool) *order.Order {
	t.Helper()
	ctx := context.Background()

	b, err := buyer.NewBuyer(kernel.NewUUID(), "Dave")
	require.NoError(t, err)
	if withBuyer {
		require.NoError(t, uow.BuyerRepository().Add(ctx, b))
	}

	first, err := order.NewItem(21, "Sticker", 10, 50)
	require.NoError(t, err)
	second, err := order.NewItem(22, "Pin", 2, 300)
	require.NoError(t, err)
	o, err := order.RestoreOrder(kernel.NewUUID(), b.ID(), []order.Item{first, second}, status, 1)
	require.NoError(t, err)
	require.NoError(t, uow.OrderRepository().Add(ctx, o))
	return o
}

func pending(t *testing.T, store *memory.Store) []*outbox.Entry {
	t.Helper()
	list, err := store.Create().OutboxRepository().ListByState(context.Background(), outbox.Pending, 0)
	require.NoError(t, err)
	return list
}

func decode(t *testing.T, e *outbox.Entry) (integrationevents.Envelope, integrationevents.OrderStatusChanged) {
	t.Helper()
	var env integrationevents.Envelope
	require.NoError(t, json.Unmarshal(e.Payload(), &env))
	var payload integrationevents.OrderStatusChanged
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	return env, payload
}

func TestOrderStatusDispatcher_Translators(t *testing.T) {
	tests := []struct {
		from       order.Status
		to         order.Status
		topic      string
		eventType  string
		stockItems bool
	}{
		{order.Submitted, order.AwaitingValidation, "order-awaiting-validation", integrationevents.OrderStatusChangedToAwaitingValidation, true},
		{order.AwaitingValidation, order.StockConfirmed, "order-stock-confirmed", integrationevents.OrderStatusChangedToStockConfirmed, false},
		{order.StockConfirmed, order.Paid, "order-paid", integrationevents.OrderStatusChangedToPaid, true},
		{order.Paid, order.Shipped, "order-shipped", integrationevents.OrderStatusChangedToShipped, false},
		{order.Paid, order.Cancelled, "order-cancelled", integrationevents.OrderStatusChangedToCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.to.String(), func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewStore()
			o := seed(t, store.Create(), tt.from, true)
			require.NoError(t, o.ChangeStatus(tt.to))

			d := domaineventhandlers.NewOrderStatusDispatcher(integrationevents.DefaultTopics(), clock.NewMockClock(now), slog.Default())
			require.NoError(t, d.Dispatch(ctx, store.Create(), o.DomainEvents()))

			entries := pending(t, store)
			require.Len(t, entries, 1)
			e := entries[0]
			assert.Equal(t, tt.topic, e.Topic())
			assert.Equal(t, tt.eventType, e.EventType())
			assert.True(t, e.AggregateID().IsEqual(o.ID()))
			assert.Equal(t, now, e.CreatedAt())
			assert.Equal(t, tt.eventType, e.Headers()["event-type"])

			env, payload := decode(t, e)
			assert.Equal(t, e.EventID().String(), env.EventID)
			assert.Equal(t, o.ID().String(), env.OrderID)
			assert.Equal(t, o.ID().String(), payload.OrderID)
			assert.Equal(t, tt.to.String(), payload.OrderStatus)
			assert.Equal(t, "Dave", payload.BuyerName)
			if tt.stockItems {
				assert.Equal(t, []integrationevents.StockItem{{ProductID: 21, Units: 10}, {ProductID: 22, Units: 2}}, payload.OrderStockItems)
			} else {
				assert.Empty(t, payload.OrderStockItems)
			}
		})
	}
}

func TestDispatcher_KeepsEventOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	o := seed(t, store.Create(), order.Submitted, true)
	require.NoError(t, o.SetAwaitingValidationStatus())
	require.NoError(t, o.SetStockConfirmedStatus())
	require.NoError(t, o.SetPaidStatus())

	d := domaineventhandlers.NewOrderStatusDispatcher(integrationevents.DefaultTopics(), clock.NewMockClock(now), slog.Default())
	require.NoError(t, d.Dispatch(ctx, store.Create(), o.DomainEvents()))

	entries := pending(t, store)
	require.Len(t, entries, 3)
	assert.Equal(t, "order-awaiting-validation", entries[0].Topic())
	assert.Equal(t, "order-stock-confirmed", entries[1].Topic())
	assert.Equal(t, "order-paid", entries[2].Topic())
}

func TestDispatcher_FailingTranslatorAppendsNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("missing buyer", func(t *testing.T) {
		store := memory.NewStore()
		o := seed(t, store.Create(), order.Paid, false)
		require.NoError(t, o.SetShippedStatus())

		d := domaineventhandlers.NewOrderStatusDispatcher(integrationevents.DefaultTopics(), clock.NewMockClock(now), slog.Default())
		err := d.Dispatch(ctx, store.Create(), o.DomainEvents())

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
		assert.Empty(t, pending(t, store))
	})

	t.Run("second translator fails", func(t *testing.T) {
		store := memory.NewStore()
		o := seed(t, store.Create(), order.Paid, true)
		require.NoError(t, o.Cancel())

		d := domaineventhandlers.NewOrderStatusDispatcher(integrationevents.DefaultTopics(), clock.NewMockClock(now), slog.Default())
		d.Register(order.StatusChangedToCancelled,
			func(context.Context, order.DomainEvent, domaineventhandlers.Lookups) (integrationevents.Event, error) {
				return integrationevents.Event{}, errors.New("boom")
			})

		require.EqualError(t, d.Dispatch(ctx, store.Create(), o.DomainEvents()), "boom")
		assert.Empty(t, pending(t, store))
	})
}

func TestDispatcher_UnregisteredKindIsIgnored(t *testing.T) {
	store := memory.NewStore()
	o := seed(t, store.Create(), order.Paid, true)
	require.NoError(t, o.SetShippedStatus())

	d := domaineventhandlers.NewDispatcher(slog.Default())

	require.NoError(t, d.Dispatch(context.Background(), store.Create(), o.DomainEvents()))
	assert.Empty(t, pending(t, store))
}

func TestDispatcher_InjectsTraceContext(t *testing.T) {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	store := memory.NewStore()
	o := seed(t, store.Create(), order.Paid, true)
	require.NoError(t, o.SetShippedStatus())

	d := domaineventhandlers.NewOrderStatusDispatcher(integrationevents.DefaultTopics(), clock.NewMockClock(now), slog.Default())
	require.NoError(t, d.Dispatch(ctx, store.Create(), o.DomainEvents()))

	entries := pending(t, store)
	require.Len(t, entries, 1)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", entries[0].Headers()["traceparent"])
}
