package order

import (
	"errors"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"
	"ordering/internal/pkg/guard"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")
)

// Order is the aggregate root of the ordering core. It owns the status state
// machine and records a DomainEvent for every transition it performs.
//
// Order follows these invariants:
//   - status only moves along the edges declared in status.go
//   - version grows by exactly one per transition
//   - each transition appends exactly one DomainEvent
//   - re-applying the current status is a no-op that raises nothing
type Order struct {
	id      kernel.UUID
	buyerID kernel.UUID
	items   []Item
	status  Status

	// version is bumped by every transition; persistedVersion is what the
	// store holds and is used as the optimistic-concurrency expectation.
	version          int64
	persistedVersion int64

	domainEvents []DomainEvent

	guard guard.ConstructorGuard
}

// NewOrder creates a Submitted order at version 1.
//
// Example:
//
//	item, _ := order.NewItem(1, ".NET Bot Black Hoodie", 2, 1950)
//	o, err := order.NewOrder(kernel.NewUUID(), buyerID, []order.Item{item})
func NewOrder(id kernel.UUID, buyerID kernel.UUID, items []Item) (*Order, error) {
	return build(id, buyerID, items, Submitted, 1)
}

// RestoreOrder rebuilds an order loaded from persistence. Nothing is raised.
func RestoreOrder(id kernel.UUID, buyerID kernel.UUID, items []Item, status Status, version int64) (*Order, error) {
	return build(id, buyerID, items, status, version)
}

func build(id kernel.UUID, buyerID kernel.UUID, items []Item, status Status, version int64) (*Order, error) {
	if err := errors.Join(
		validateID("order id", id),
		validateID("buyer id", buyerID),
		validateItems(items),
		status.Validate(),
		validateVersion(version),
	); err != nil {
		return nil, err
	}

	copied := make([]Item, len(items))
	copy(copied, items)

	return &Order{
		id:               id,
		buyerID:          buyerID,
		items:            copied,
		status:           status,
		version:          version,
		persistedVersion: version,
		guard:            guard.NewConstructorGuard(),
	}, nil
}

func (o *Order) Validate() error {
	if o == nil {
		return ErrOrderIsNotConstructed
	}
	return o.guard.Validate(ErrOrderIsNotConstructed)
}

// IsEqual compares two orders by identity.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

func (o *Order) ID() kernel.UUID {
	return o.id
}

func (o *Order) BuyerID() kernel.UUID {
	return o.buyerID
}

// Items returns a copy of the order lines.
func (o *Order) Items() []Item {
	out := make([]Item, len(o.items))
	copy(out, o.items)
	return out
}

func (o *Order) Status() Status {
	return o.status
}

func (o *Order) Version() int64 {
	return o.version
}

// PersistedVersion is the version the order had when it was loaded.
func (o *Order) PersistedVersion() int64 {
	return o.persistedVersion
}

// Total sums all order lines.
func (o *Order) Total() int64 {
	var total int64
	for _, item := range o.items {
		total += item.Total()
	}
	return total
}

// DomainEvents returns the events raised since the order was loaded.
func (o *Order) DomainEvents() []DomainEvent {
	out := make([]DomainEvent, len(o.domainEvents))
	copy(out, o.domainEvents)
	return out
}

// ClearDomainEvents drops pending events once they have been dispatched.
func (o *Order) ClearDomainEvents() {
	o.domainEvents = nil
}

// SetAwaitingValidationStatus moves a Submitted order past its grace period.
func (o *Order) SetAwaitingValidationStatus() error {
	return o.changeStatus(AwaitingValidation)
}

// SetStockConfirmedStatus records that every item was reserved.
func (o *Order) SetStockConfirmedStatus() error {
	return o.changeStatus(StockConfirmed)
}

// SetPaidStatus records a successful payment.
func (o *Order) SetPaidStatus() error {
	return o.changeStatus(Paid)
}

// SetShippedStatus moves a Paid order to its terminal Shipped state.
func (o *Order) SetShippedStatus() error {
	return o.changeStatus(Shipped)
}

// Cancel is allowed from every non-terminal status.
func (o *Order) Cancel() error {
	return o.changeStatus(Cancelled)
}

// ChangeStatus applies the transition to target. Callers that know the
// target only at runtime use it instead of the named methods.
func (o *Order) ChangeStatus(target Status) error {
	return o.changeStatus(target)
}

func (o *Order) changeStatus(target Status) error {
	if o.status == target {
		return nil
	}

	next, err := o.status.TransitionTo(target)
	if err != nil {
		return err
	}

	from := o.status
	o.status = next
	o.version++
	o.domainEvents = append(o.domainEvents, StatusChangedEvent{
		kind:    eventKindByStatus[next],
		orderID: o.id,
		buyerID: o.buyerID,
		from:    from,
		to:      next,
		version: o.version,
		items:   o.Items(),
	})
	return nil
}

func validateID(name string, id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause(name, err)
	}
	return nil
}

func validateItems(items []Item) error {
	if len(items) == 0 {
		return errs.NewValueIsRequiredError("items")
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(version int64) error {
	if version < 1 {
		return errs.NewValueIsOutOfRangeError("version", version, 1, "unbounded")
	}
	return nil
}
