// Package memory is a process-local implementation of the store and bus
// ports. A transaction holds the store lock from Begin until Commit or
// Rollback and works on a copy, so a failed or abandoned transaction leaves
// nothing behind. Used by `serve --in-memory` and by tests.
package memory

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"ordering/internal/core/domain/model/buyer"
	"ordering/internal/core/domain/model/inbox"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/ports"

	"github.com/google/uuid"
)

var ErrNoTransaction = errors.New("no active transaction")

type orderRecord struct {
	buyerID uuid.UUID
	items   []order.Item
	status  order.Status
	version int64
}

type outboxRecord struct {
	entry      outboxSnapshot
	leaseOwner string
	leaseUntil time.Time
}

type state struct {
	orders    map[uuid.UUID]orderRecord
	buyers    map[uuid.UUID]*buyer.Buyer
	outbox    map[uuid.UUID]outboxRecord
	processed map[uuid.UUID]*inbox.ProcessedEvent
}

func newState() *state {
	return &state{
		orders:    make(map[uuid.UUID]orderRecord),
		buyers:    make(map[uuid.UUID]*buyer.Buyer),
		outbox:    make(map[uuid.UUID]outboxRecord),
		processed: make(map[uuid.UUID]*inbox.ProcessedEvent),
	}
}

// clone copies the maps. Records are values and their slices are never
// mutated in place, so a shallow copy is enough.
func (s *state) clone() *state {
	return &state{
		orders:    maps.Clone(s.orders),
		buyers:    maps.Clone(s.buyers),
		outbox:    maps.Clone(s.outbox),
		processed: maps.Clone(s.processed),
	}
}

// Store is the shared state behind every UnitOfWork it creates.
type Store struct {
	mu       sync.Mutex
	current  *state
	sequence int64

	hookMu         sync.Mutex
	failNextCommit error
}

func NewStore() *Store {
	return &Store{current: newState()}
}

// FailNextCommit makes the next Commit return err and discard its changes.
func (s *Store) FailNextCommit(err error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.failNextCommit = err
}

func (s *Store) takeCommitFailure() error {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	err := s.failNextCommit
	s.failNextCommit = nil
	return err
}

// Create implements ports.UnitOfWorkFactory.
func (s *Store) Create() ports.UnitOfWork {
	return &UnitOfWork{store: s}
}

// UnitOfWork is not safe for concurrent use; create one per operation.
type UnitOfWork struct {
	store *Store
	tx    *state
}

func (u *UnitOfWork) Begin(_ context.Context) error {
	if u.tx != nil {
		return nil
	}
	u.store.mu.Lock()
	u.tx = u.store.current.clone()
	return nil
}

func (u *UnitOfWork) Commit(_ context.Context) error {
	if u.tx == nil {
		return ErrNoTransaction
	}
	defer u.store.mu.Unlock()

	tx := u.tx
	u.tx = nil
	if err := u.store.takeCommitFailure(); err != nil {
		return err
	}
	u.store.current = tx
	return nil
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	if u.tx == nil {
		return ErrNoTransaction
	}
	u.tx = nil
	u.store.mu.Unlock()
	return nil
}

func (u *UnitOfWork) OrderRepository() ports.OrderRepository {
	return &orderRepository{uow: u}
}

func (u *UnitOfWork) BuyerRepository() ports.BuyerRepository {
	return &buyerRepository{uow: u}
}

func (u *UnitOfWork) OutboxRepository() ports.OutboxRepository {
	return &outboxRepository{uow: u}
}

func (u *UnitOfWork) ProcessedEventRepository() ports.ProcessedEventRepository {
	return &processedEventRepository{uow: u}
}

// run executes fn inside the active transaction, or in a single-statement
// transaction of its own when none was begun.
func (u *UnitOfWork) run(fn func(st *state) error) error {
	if u.tx != nil {
		return fn(u.tx)
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	working := u.store.current.clone()
	if err := fn(working); err != nil {
		return err
	}
	u.store.current = working
	return nil
}

// nextSequence must be called with the store lock held.
func (u *UnitOfWork) nextSequence() int64 {
	u.store.sequence++
	return u.store.sequence
}
