// Package ports defines the contracts between the ordering core and its
// infrastructure: repositories, the unit of work, the message bus and the
// processed-event cache.
package ports

import (
	"context"

	"ordering/internal/core/domain/model/buyer"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
type OrderRepository interface {
	// Add persists a new order aggregate.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists the aggregate if the stored version still equals
	// aggregate.PersistedVersion(). A mismatch fails with errs.ConflictError
	// and nothing is written.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get returns errs.ObjectNotFoundError when the order does not exist.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)
}

// BuyerRepository is read by the event translators to enrich payloads.
type BuyerRepository interface {
	Add(ctx context.Context, aggregate *buyer.Buyer) error
	Get(ctx context.Context, id kernel.UUID) (*buyer.Buyer, error)
}
