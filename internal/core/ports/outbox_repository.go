package ports

import (
	"context"
	"time"

	"ordering/internal/core/domain/model/inbox"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/outbox"
)

// OutboxClaim describes one relay lease request.
type OutboxClaim struct {
	Owner    string
	Limit    int
	LeaseFor time.Duration
	Now      time.Time
}

// OutboxRepository stores integration events until the relay delivered them.
type OutboxRepository interface {
	// Append writes new Pending entries. It must run in the same transaction
	// as the aggregate change that produced them.
	Append(ctx context.Context, entries ...*outbox.Entry) error

	// ClaimPending leases up to claim.Limit entries to claim.Owner.
	//
	// An order's entries are claimable only when its earliest undelivered
	// entry is Pending, due (NextAttemptAt <= Now) and not leased by someone
	// else. The claim then covers that head entry and the Pending entries
	// behind it, so at most one relay works on an order at a time. Entries
	// are returned in (createdAt, sequence) order.
	ClaimPending(ctx context.Context, claim OutboxClaim) ([]*outbox.Entry, error)

	// Update stores the entry's state and clears its lease. With a non-empty
	// leaseOwner the write only happens while that owner still holds the
	// lease; otherwise it fails with errs.ConflictError.
	Update(ctx context.Context, entry *outbox.Entry, leaseOwner string) error

	// Release drops the owner's lease on the given entries without changing them.
	Release(ctx context.Context, leaseOwner string, eventIDs []kernel.UUID) error

	Get(ctx context.Context, eventID kernel.UUID) (*outbox.Entry, error)

	// ListByState returns entries oldest first.
	ListByState(ctx context.Context, state outbox.State, limit int) ([]*outbox.Entry, error)

	// DeletePublishedBefore removes Published entries delivered before the cutoff.
	DeletePublishedBefore(ctx context.Context, before time.Time) (int64, error)
}

// ProcessedEventRepository is the inbox of the integration event consumer.
type ProcessedEventRepository interface {
	Exists(ctx context.Context, eventID kernel.UUID) (bool, error)

	// Add fails with errs.ConflictError if the event was already recorded.
	Add(ctx context.Context, event *inbox.ProcessedEvent) error

	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
