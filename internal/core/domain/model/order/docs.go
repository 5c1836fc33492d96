// Package order holds the Order aggregate root of the ordering service.
//
// The package includes:
//   - Order: the aggregate that owns the status lifecycle and its version counter
//   - Status: the state machine enforcing the allowed transitions
//   - Item: an immutable order line
//   - DomainEvent: facts raised by transitions and consumed before commit
//
// Key business rules:
//   - Submitted -> AwaitingValidation -> StockConfirmed -> Paid -> Shipped
//   - Cancelled is reachable from every non-terminal status
//   - Shipped and Cancelled are terminal
//   - repeating the current status is a no-op, never an error
package order
