// Package domaineventhandlers turns domain events raised by the Order
// aggregate into outbox entries, inside the transaction that raised them.
package domaineventhandlers

import (
	"context"
	"log/slog"

	"ordering/internal/core/application/integrationevents"
	"ordering/internal/core/domain/model/buyer"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/model/outbox"
	"ordering/internal/core/ports"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Lookups gives translators read access to the current transaction.
type Lookups interface {
	Order(ctx context.Context, id kernel.UUID) (*order.Order, error)
	Buyer(ctx context.Context, id kernel.UUID) (*buyer.Buyer, error)
}

// Translator derives one integration event from a domain event. Translators
// must not write anything; the dispatcher owns the outbox append.
type Translator func(ctx context.Context, event order.DomainEvent, lookups Lookups) (integrationevents.Event, error)

// Dispatcher is a synchronous, in-transaction observer list keyed by event kind.
//
// Example:
//
//	d := domaineventhandlers.NewDispatcher(logger)
//	d.Register(order.StatusChangedToPaid, notifyPaid)
//	err := d.Dispatch(ctx, uow, o.DomainEvents())
type Dispatcher struct {
	translators map[order.EventKind][]Translator
	propagator  propagation.TextMapPropagator
	logger      *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		translators: make(map[order.EventKind][]Translator),
		propagator:  otel.GetTextMapPropagator(),
		logger:      logger.With("component", "DomainEventDispatcher"),
	}
}

// Register adds a translator for kind. Registration happens once at start-up;
// the dispatcher is not safe for concurrent Register calls.
func (d *Dispatcher) Register(kind order.EventKind, translator Translator) {
	d.translators[kind] = append(d.translators[kind], translator)
}

// Dispatch runs every translator registered for each event, in event order,
// and appends the results to the outbox of uow. Any error aborts the whole
// batch so the caller's transaction can roll back.
func (d *Dispatcher) Dispatch(ctx context.Context, uow ports.UnitOfWork, events []order.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	lookups := uowLookups{uow: uow}
	entries := make([]*outbox.Entry, 0, len(events))

	for _, event := range events {
		for _, translate := range d.translators[event.Kind()] {
			integrationEvent, err := translate(ctx, event, lookups)
			if err != nil {
				return err
			}

			entry, err := d.toEntry(ctx, integrationEvent)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		return nil
	}

	if err := uow.OutboxRepository().Append(ctx, entries...); err != nil {
		return err
	}

	for _, e := range entries {
		d.logger.DebugContext(ctx, "integration event staged",
			"event_id", e.EventID().String(),
			"order_id", e.AggregateID().String(),
			"topic", e.Topic(),
		)
	}
	return nil
}

func (d *Dispatcher) toEntry(ctx context.Context, e integrationevents.Event) (*outbox.Entry, error) {
	payload, err := integrationevents.Marshal(e)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string)
	d.propagator.Inject(ctx, propagation.MapCarrier(headers))
	headers["event-type"] = e.Type

	return outbox.NewEntry(e.ID, e.OrderID, e.Topic, e.Type, payload, headers, e.CreatedAt)
}

type uowLookups struct {
	uow ports.UnitOfWork
}

func (l uowLookups) Order(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	return l.uow.OrderRepository().Get(ctx, id)
}

func (l uowLookups) Buyer(ctx context.Context, id kernel.UUID) (*buyer.Buyer, error) {
	return l.uow.BuyerRepository().Get(ctx, id)
}
