package queries

import (
	"errors"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/outbox"
	"ordering/internal/pkg/errs"
	"ordering/internal/pkg/guard"
)

const DefaultOutboxListLimit = 100

var (
	ErrListOutboxEntriesQueryIsNotConstructed = errors.New(
		"ListOutboxEntriesQuery must be created via NewListOutboxEntriesQuery constructor",
	)
)

// ListOutboxEntriesQuery lists entries in one state, oldest first. Operators
// use it with outbox.Failed to find dead letters.
type ListOutboxEntriesQuery struct {
	state outbox.State
	limit int

	guard guard.ConstructorGuard
}

// NewListOutboxEntriesQuery uses DefaultOutboxListLimit when limit is 0.
func NewListOutboxEntriesQuery(state outbox.State, limit int) (ListOutboxEntriesQuery, error) {
	if err := state.Validate(); err != nil {
		return ListOutboxEntriesQuery{}, err
	}
	if limit < 0 {
		return ListOutboxEntriesQuery{}, errs.NewValueIsOutOfRangeError("limit", limit, 0, "unbounded")
	}
	if limit == 0 {
		limit = DefaultOutboxListLimit
	}
	return ListOutboxEntriesQuery{state: state, limit: limit, guard: guard.NewConstructorGuard()}, nil
}

func (q ListOutboxEntriesQuery) Validate() error {
	return q.guard.Validate(ErrListOutboxEntriesQueryIsNotConstructed)
}

func (q ListOutboxEntriesQuery) State() outbox.State {
	return q.state
}

func (q ListOutboxEntriesQuery) Limit() int {
	return q.limit
}

type OutboxEntryResponse struct {
	EventID       kernel.UUID
	OrderID       kernel.UUID
	Topic         string
	EventType     string
	State         string
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	PublishedAt   *time.Time
	NextAttemptAt time.Time
}
