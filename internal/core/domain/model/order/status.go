package order

import (
	"fmt"

	"ordering/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
//
// State transitions:
//
//	Submitted ──> AwaitingValidation ──> StockConfirmed ──> Paid ──> Shipped
//	    │                 │                    │             │
//	    └─────────────────┴────────────────────┴─────────────┴──> Cancelled
//
// Shipped and Cancelled are terminal.
type Status int

const (
	// Unknown catches uninitialized Status values.
	Unknown Status = iota

	// Submitted is the state an order is created in at checkout.
	Submitted

	// AwaitingValidation is entered once the grace period has passed and the
	// order is waiting for the stock service.
	AwaitingValidation

	// StockConfirmed means every item was reserved.
	StockConfirmed

	// Paid means the payment service confirmed the charge.
	Paid

	// Shipped is terminal.
	Shipped

	// Cancelled is terminal and reachable from every non-terminal state.
	Cancelled
)

var statusNames = map[Status]string{
	Unknown:            "Unknown",
	Submitted:          "Submitted",
	AwaitingValidation: "AwaitingValidation",
	StockConfirmed:     "StockConfirmed",
	Paid:               "Paid",
	Shipped:            "Shipped",
	Cancelled:          "Cancelled",
}

// transitions is the complete edge table of the state machine.
var transitions = map[Status][]Status{
	Submitted:          {AwaitingValidation, Cancelled},
	AwaitingValidation: {StockConfirmed, Cancelled},
	StockConfirmed:     {Paid, Cancelled},
	Paid:               {Shipped, Cancelled},
}

// AllStatuses lists the valid statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{Submitted, AwaitingValidation, StockConfirmed, Paid, Shipped, Cancelled}
}

// Validate checks that s is one of the known statuses.
// Used when restoring orders from persistence.
func (s Status) Validate() error {
	if s <= Unknown || s > Cancelled {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the human-readable name of the status.
func (s Status) String() string {
	if str, ok := statusNames[s]; ok {
		return str
	}
	return "Unknown"
}

// IsTerminal reports whether no further transitions leave s.
func (s Status) IsTerminal() bool {
	return s == Shipped || s == Cancelled
}

// HasReached reports whether s is at or beyond target on the forward path
// Submitted → … → Shipped. Cancelled is off that path and never reaches a
// forward status, nor is it reached by one.
func (s Status) HasReached(target Status) bool {
	if s == Cancelled || target == Cancelled {
		return s == target
	}
	return s >= target
}

// CanTransitionTo reports whether the edge s → target exists.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// TransitionTo returns target when the edge exists, and an
// errs.InvalidTransitionError otherwise. Staying in place is not an edge;
// callers handle that case themselves.
//
// Example:
//
//	next, err := order.Paid.TransitionTo(order.Shipped) // Shipped, nil
//	_, err = order.Shipped.TransitionTo(order.Paid)     // invalid transition: Shipped -> Paid
func (s Status) TransitionTo(target Status) (Status, error) {
	if !s.CanTransitionTo(target) {
		return Unknown, errs.NewInvalidTransitionError(s, target)
	}
	return target, nil
}
