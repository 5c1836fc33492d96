package ports

import (
	"context"
)

// UnitOfWorkFactory creates new UnitOfWork instances for each request/command.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWork represents a business transaction boundary. Repositories taken
// after Begin share its transaction; taken before, each call stands alone.
type UnitOfWork interface {
	Begin(ctx context.Context) error

	// Commit returns an error if there is no active transaction.
	Commit(ctx context.Context) error

	// Rollback returns an error if there is no active transaction. Calling it
	// after Commit is harmless.
	Rollback(ctx context.Context) error

	OrderRepository() OrderRepository
	BuyerRepository() BuyerRepository
	OutboxRepository() OutboxRepository
	ProcessedEventRepository() ProcessedEventRepository
}
