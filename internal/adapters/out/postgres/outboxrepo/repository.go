package outboxrepo

import (
	"context"
	"errors"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/outbox"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// claimSQL selects the due head of every order together with the Pending
// entries queued behind it. Rows locked by a concurrent claim are skipped.
// Entries are ordered by sequence, not created_at: the app clock may skew
// between replicas, while the sequence of one order follows its commit order.
const claimSQL = `
WITH heads AS (
    SELECT DISTINCT ON (aggregate_id)
        aggregate_id, event_id, state, next_attempt_at, lease_until
    FROM outbox_entries
    WHERE state <> 'Published'
    ORDER BY aggregate_id, sequence
), ready AS (
    SELECT aggregate_id, event_id AS head_event_id
    FROM heads
    WHERE state = 'Pending'
      AND next_attempt_at <= @now
      AND (lease_until IS NULL OR lease_until <= @now)
)
SELECT e.*, r.head_event_id
FROM outbox_entries e
JOIN ready r ON r.aggregate_id = e.aggregate_id
WHERE e.state = 'Pending'
  AND (e.lease_until IS NULL OR e.lease_until <= @now)
ORDER BY e.sequence
LIMIT @limit
FOR UPDATE OF e SKIP LOCKED`

type claimedRow struct {
	EntryDTO
	HeadEventID uuid.UUID
}

// GormOutboxRepository implements ports.OutboxRepository. ClaimPending must
// run inside a transaction; the lease is what outlives it.
type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func (r *GormOutboxRepository) Append(ctx context.Context, entries ...*outbox.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		dtos = append(dtos, fromDomain(e))
	}

	// One statement keeps the bigserial sequence in slice order.
	if err := r.db.WithContext(ctx).Create(&dtos).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflictErrorWithCause("outbox entry", entries[0].EventID().String(), err)
		}
		return pkgerrors.Wrap(err, "insert outbox entries")
	}
	return nil
}

func (r *GormOutboxRepository) ClaimPending(ctx context.Context, claim ports.OutboxClaim) ([]*outbox.Entry, error) {
	limit := claim.Limit
	if limit <= 0 {
		limit = 100
	}
	now := claim.Now.UTC()

	var rows []claimedRow
	err := r.db.WithContext(ctx).
		Raw(claimSQL, map[string]any{"now": now, "limit": limit}).
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "claim outbox entries")
	}

	rows = keepHeadedRuns(rows)
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.EventID)
	}
	err = r.db.WithContext(ctx).Model(&EntryDTO{}).
		Where("event_id IN ?", ids).
		Updates(map[string]any{
			"lease_owner": claim.Owner,
			"lease_until": now.Add(claim.LeaseFor),
		}).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "lease outbox entries")
	}

	entries := make([]*outbox.Entry, 0, len(rows))
	for _, row := range rows {
		e, convErr := toDomain(row.EntryDTO)
		if convErr != nil {
			return nil, convErr
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// keepHeadedRuns drops the rows of every order whose head was skipped, so a
// relay never holds an order's later entries without its first one.
func keepHeadedRuns(rows []claimedRow) []claimedRow {
	headed := make(map[uuid.UUID]bool)
	for _, row := range rows {
		if row.EventID == row.HeadEventID {
			headed[row.AggregateID] = true
		}
	}

	out := rows[:0]
	for _, row := range rows {
		if headed[row.AggregateID] {
			out = append(out, row)
		}
	}
	return out
}

func (r *GormOutboxRepository) Update(ctx context.Context, entry *outbox.Entry, leaseOwner string) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	dto := fromDomain(entry)
	query := r.db.WithContext(ctx).Model(&EntryDTO{}).Where("event_id = ?", dto.EventID)
	if leaseOwner != "" {
		query = query.Where("lease_owner = ?", leaseOwner)
	}

	result := query.Updates(map[string]any{
		"state":           dto.State,
		"attempts":        dto.Attempts,
		"last_error":      dto.LastError,
		"published_at":    dto.PublishedAt,
		"next_attempt_at": dto.NextAttemptAt,
		"lease_owner":     nil,
		"lease_until":     nil,
	})
	if result.Error != nil {
		return pkgerrors.Wrap(result.Error, "update outbox entry")
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&EntryDTO{}).Where("event_id = ?", dto.EventID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(err, "count outbox entry")
	}
	if count == 0 {
		return errs.NewObjectNotFoundError("outbox entry", entry.EventID().String())
	}
	return errs.NewConflictError("outbox entry", entry.EventID().String())
}

func (r *GormOutboxRepository) Release(ctx context.Context, leaseOwner string, eventIDs []kernel.UUID) error {
	if len(eventIDs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(eventIDs))
	for _, id := range eventIDs {
		ids = append(ids, id.Bytes())
	}

	err := r.db.WithContext(ctx).Model(&EntryDTO{}).
		Where("event_id IN ? AND lease_owner = ?", ids, leaseOwner).
		Updates(map[string]any{"lease_owner": nil, "lease_until": nil}).Error
	return pkgerrors.Wrap(err, "release outbox leases")
}

func (r *GormOutboxRepository) Get(ctx context.Context, eventID kernel.UUID) (*outbox.Entry, error) {
	var dto EntryDTO
	if err := r.db.WithContext(ctx).First(&dto, "event_id = ?", eventID.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("outbox entry", eventID.String())
		}
		return nil, pkgerrors.Wrap(err, "select outbox entry")
	}
	return toDomain(dto)
}

func (r *GormOutboxRepository) ListByState(ctx context.Context, state outbox.State, limit int) ([]*outbox.Entry, error) {
	query := r.db.WithContext(ctx).Where("state = ?", state.String()).Order("sequence")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var dtos []EntryDTO
	if err := query.Find(&dtos).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list outbox entries")
	}

	entries := make([]*outbox.Entry, 0, len(dtos))
	for _, dto := range dtos {
		e, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *GormOutboxRepository) DeletePublishedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("state = ? AND published_at < ?", outbox.Published.String(), before.UTC()).
		Delete(&EntryDTO{})
	if result.Error != nil {
		return 0, pkgerrors.Wrap(result.Error, "delete published outbox entries")
	}
	return result.RowsAffected, nil
}
