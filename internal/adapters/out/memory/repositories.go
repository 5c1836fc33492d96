package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"ordering/internal/core/domain/model/buyer"
	"ordering/internal/core/domain/model/inbox"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/model/outbox"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

type outboxSnapshot = outbox.Snapshot

type orderRepository struct {
	uow *UnitOfWork
}

func (r *orderRepository) Add(_ context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	return r.uow.run(func(st *state) error {
		id := aggregate.ID().Bytes()
		if _, ok := st.orders[id]; ok {
			return errs.NewConflictError("order", aggregate.ID().String())
		}
		st.orders[id] = toOrderRecord(aggregate)
		return nil
	})
}

func (r *orderRepository) Update(_ context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	return r.uow.run(func(st *state) error {
		id := aggregate.ID().Bytes()
		stored, ok := st.orders[id]
		if !ok {
			return errs.NewObjectNotFoundError("order", aggregate.ID().String())
		}
		if stored.version != aggregate.PersistedVersion() {
			return errs.NewConflictErrorWithCause("order", aggregate.ID().String(),
				errs.NewValueIsOutOfRangeError("version", aggregate.PersistedVersion(), stored.version, stored.version))
		}
		st.orders[id] = toOrderRecord(aggregate)
		return nil
	})
}

func (r *orderRepository) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	var found *order.Order
	err := r.uow.run(func(st *state) error {
		rec, ok := st.orders[id.Bytes()]
		if !ok {
			return errs.NewObjectNotFoundError("order", id.String())
		}
		buyerID, err := kernel.UUIDFromBytes(rec.buyerID[:])
		if err != nil {
			return err
		}
		found, err = order.RestoreOrder(id, buyerID, rec.items, rec.status, rec.version)
		return err
	})
	return found, err
}

func toOrderRecord(o *order.Order) orderRecord {
	return orderRecord{
		buyerID: o.BuyerID().Bytes(),
		items:   o.Items(),
		status:  o.Status(),
		version: o.Version(),
	}
}

type buyerRepository struct {
	uow *UnitOfWork
}

func (r *buyerRepository) Add(_ context.Context, aggregate *buyer.Buyer) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	return r.uow.run(func(st *state) error {
		if _, ok := st.buyers[aggregate.ID().Bytes()]; ok {
			return errs.NewConflictError("buyer", aggregate.ID().String())
		}
		st.buyers[aggregate.ID().Bytes()] = aggregate
		return nil
	})
}

func (r *buyerRepository) Get(_ context.Context, id kernel.UUID) (*buyer.Buyer, error) {
	var found *buyer.Buyer
	err := r.uow.run(func(st *state) error {
		b, ok := st.buyers[id.Bytes()]
		if !ok {
			return errs.NewObjectNotFoundError("buyer", id.String())
		}
		found = b
		return nil
	})
	return found, err
}

type outboxRepository struct {
	uow *UnitOfWork
}

func (r *outboxRepository) Append(_ context.Context, entries ...*outbox.Entry) error {
	return r.uow.run(func(st *state) error {
		for _, e := range entries {
			if err := e.Validate(); err != nil {
				return err
			}
			id := e.EventID().Bytes()
			if _, ok := st.outbox[id]; ok {
				return errs.NewConflictError("outbox entry", e.EventID().String())
			}
			snap := e.Snapshot()
			snap.Sequence = r.uow.nextSequence()
			st.outbox[id] = outboxRecord{entry: snap}
		}
		return nil
	})
}

func (r *outboxRepository) ClaimPending(_ context.Context, claim ports.OutboxClaim) ([]*outbox.Entry, error) {
	var claimed []*outbox.Entry
	err := r.uow.run(func(st *state) error {
		byOrder := make(map[kernel.UUID][]outboxRecord)
		for _, rec := range st.outbox {
			byOrder[rec.entry.AggregateID] = append(byOrder[rec.entry.AggregateID], rec)
		}

		var candidates []outboxRecord
		for _, records := range byOrder {
			slices.SortFunc(records, compareRecords)
			candidates = append(candidates, claimable(records, claim.Now)...)
		}
		slices.SortFunc(candidates, compareRecords)
		if claim.Limit > 0 && len(candidates) > claim.Limit {
			candidates = candidates[:claim.Limit]
		}

		for _, rec := range candidates {
			rec.leaseOwner = claim.Owner
			rec.leaseUntil = claim.Now.Add(claim.LeaseFor)
			st.outbox[rec.entry.EventID.Bytes()] = rec

			e, err := outbox.RestoreEntry(rec.entry)
			if err != nil {
				return err
			}
			claimed = append(claimed, e)
		}
		return nil
	})
	return claimed, err
}

// claimable returns the leasable prefix of one order's sorted records.
func claimable(records []outboxRecord, now time.Time) []outboxRecord {
	head := -1
	for i, rec := range records {
		if rec.entry.State != outbox.Published {
			head = i
			break
		}
	}
	if head < 0 {
		return nil
	}

	first := records[head]
	if first.entry.State != outbox.Pending || first.entry.NextAttemptAt.After(now) || leased(first, now) {
		return nil
	}

	var out []outboxRecord
	for _, rec := range records[head:] {
		if rec.entry.State != outbox.Pending || leased(rec, now) {
			break
		}
		out = append(out, rec)
	}
	return out
}

func leased(rec outboxRecord, now time.Time) bool {
	return rec.leaseOwner != "" && rec.leaseUntil.After(now)
}

// compareRecords orders by append sequence. CreatedAt comes from the
// caller's clock and is not trusted for ordering.
func compareRecords(a, b outboxRecord) int {
	return cmp.Compare(a.entry.Sequence, b.entry.Sequence)
}

func (r *outboxRepository) Update(_ context.Context, entry *outbox.Entry, leaseOwner string) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	return r.uow.run(func(st *state) error {
		id := entry.EventID().Bytes()
		rec, ok := st.outbox[id]
		if !ok {
			return errs.NewObjectNotFoundError("outbox entry", entry.EventID().String())
		}
		if leaseOwner != "" && rec.leaseOwner != leaseOwner {
			return errs.NewConflictError("outbox entry", entry.EventID().String())
		}

		snap := entry.Snapshot()
		snap.Sequence = rec.entry.Sequence
		st.outbox[id] = outboxRecord{entry: snap}
		return nil
	})
}

func (r *outboxRepository) Release(_ context.Context, leaseOwner string, eventIDs []kernel.UUID) error {
	return r.uow.run(func(st *state) error {
		for _, eventID := range eventIDs {
			rec, ok := st.outbox[eventID.Bytes()]
			if !ok || rec.leaseOwner != leaseOwner {
				continue
			}
			rec.leaseOwner = ""
			rec.leaseUntil = time.Time{}
			st.outbox[eventID.Bytes()] = rec
		}
		return nil
	})
}

func (r *outboxRepository) Get(_ context.Context, eventID kernel.UUID) (*outbox.Entry, error) {
	var found *outbox.Entry
	err := r.uow.run(func(st *state) error {
		rec, ok := st.outbox[eventID.Bytes()]
		if !ok {
			return errs.NewObjectNotFoundError("outbox entry", eventID.String())
		}
		var err error
		found, err = outbox.RestoreEntry(rec.entry)
		return err
	})
	return found, err
}

func (r *outboxRepository) ListByState(_ context.Context, s outbox.State, limit int) ([]*outbox.Entry, error) {
	var list []*outbox.Entry
	err := r.uow.run(func(st *state) error {
		var records []outboxRecord
		for _, rec := range st.outbox {
			if rec.entry.State == s {
				records = append(records, rec)
			}
		}
		slices.SortFunc(records, compareRecords)
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
		for _, rec := range records {
			e, err := outbox.RestoreEntry(rec.entry)
			if err != nil {
				return err
			}
			list = append(list, e)
		}
		return nil
	})
	return list, err
}

func (r *outboxRepository) DeletePublishedBefore(_ context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.uow.run(func(st *state) error {
		for id, rec := range st.outbox {
			if rec.entry.State == outbox.Published && rec.entry.PublishedAt != nil && rec.entry.PublishedAt.Before(before) {
				delete(st.outbox, id)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

type processedEventRepository struct {
	uow *UnitOfWork
}

func (r *processedEventRepository) Exists(_ context.Context, eventID kernel.UUID) (bool, error) {
	var exists bool
	err := r.uow.run(func(st *state) error {
		_, exists = st.processed[eventID.Bytes()]
		return nil
	})
	return exists, err
}

func (r *processedEventRepository) Add(_ context.Context, event *inbox.ProcessedEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	return r.uow.run(func(st *state) error {
		id := event.EventID().Bytes()
		if _, ok := st.processed[id]; ok {
			return errs.NewConflictError("processed event", event.EventID().String())
		}
		st.processed[id] = event
		return nil
	})
}

func (r *processedEventRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.uow.run(func(st *state) error {
		for id, p := range st.processed {
			if p.ProcessedAt().Before(before) {
				delete(st.processed, id)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}
