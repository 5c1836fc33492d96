package order

import (
	"ordering/internal/core/domain/model/kernel"
)

// EventKind tags the variant of a DomainEvent. Dispatch is keyed on it.
type EventKind string

const (
	StatusChangedToAwaitingValidation EventKind = "OrderStatusChangedToAwaitingValidation"
	StatusChangedToStockConfirmed     EventKind = "OrderStatusChangedToStockConfirmed"
	StatusChangedToPaid               EventKind = "OrderStatusChangedToPaid"
	StatusChangedToShipped            EventKind = "OrderStatusChangedToShipped"
	StatusChangedToCancelled          EventKind = "OrderStatusChangedToCancelled"
)

var eventKindByStatus = map[Status]EventKind{
	AwaitingValidation: StatusChangedToAwaitingValidation,
	StockConfirmed:     StatusChangedToStockConfirmed,
	Paid:               StatusChangedToPaid,
	Shipped:            StatusChangedToShipped,
	Cancelled:          StatusChangedToCancelled,
}

// DomainEvent is an in-process fact about a completed mutation of an Order.
// It is never persisted on its own; the dispatcher turns it into outbox
// entries before the transaction commits.
type DomainEvent interface {
	Kind() EventKind
	OrderID() kernel.UUID
}

// StatusChangedEvent carries a snapshot of the order taken right after the
// transition that raised it.
type StatusChangedEvent struct {
	kind    EventKind
	orderID kernel.UUID
	buyerID kernel.UUID
	from    Status
	to      Status
	version int64
	items   []Item
}

func (e StatusChangedEvent) Kind() EventKind {
	return e.kind
}

func (e StatusChangedEvent) OrderID() kernel.UUID {
	return e.orderID
}

func (e StatusChangedEvent) BuyerID() kernel.UUID {
	return e.buyerID
}

func (e StatusChangedEvent) From() Status {
	return e.from
}

func (e StatusChangedEvent) To() Status {
	return e.to
}

// Version is the aggregate version the transition produced.
func (e StatusChangedEvent) Version() int64 {
	return e.version
}

func (e StatusChangedEvent) Items() []Item {
	out := make([]Item, len(e.items))
	copy(out, e.items)
	return out
}
