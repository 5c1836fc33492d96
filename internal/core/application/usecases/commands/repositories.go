// Package commands contains business operations that modify system state.
// Every command follows the same pattern: validation, a scoped transaction
// (begin, deferred rollback, commit) and persistence through a unit of work.
package commands

import (
	"context"

	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/ports"
)

// DomainEventDispatcher stages the integration events derived from
// events into the outbox of uow. It runs before the transaction commits.
type DomainEventDispatcher interface {
	Dispatch(ctx context.Context, uow ports.UnitOfWork, events []order.DomainEvent) error
}
