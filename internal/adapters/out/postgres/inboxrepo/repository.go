// Package inboxrepo records the integration events the consumer already applied.
package inboxrepo

import (
	"context"
	"errors"
	"time"

	"ordering/internal/core/domain/model/inbox"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

type ProcessedEventDTO struct {
	EventID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventType   string
	ProcessedAt time.Time `gorm:"index"`
}

func (ProcessedEventDTO) TableName() string {
	return "processed_events"
}

type GormProcessedEventRepository struct {
	db *gorm.DB
}

func NewGormProcessedEventRepository(db *gorm.DB) *GormProcessedEventRepository {
	return &GormProcessedEventRepository{db: db}
}

func (r *GormProcessedEventRepository) Exists(ctx context.Context, eventID kernel.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ProcessedEventDTO{}).
		Where("event_id = ?", eventID.Bytes()).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(err, "check processed event")
	}
	return count > 0, nil
}

func (r *GormProcessedEventRepository) Add(ctx context.Context, event *inbox.ProcessedEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	dto := ProcessedEventDTO{
		EventID:     event.EventID().Bytes(),
		EventType:   event.EventType(),
		ProcessedAt: event.ProcessedAt().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflictErrorWithCause("processed event", event.EventID().String(), err)
		}
		return pkgerrors.Wrap(err, "insert processed event")
	}
	return nil
}

func (r *GormProcessedEventRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("processed_at < ?", before.UTC()).Delete(&ProcessedEventDTO{})
	if result.Error != nil {
		return 0, pkgerrors.Wrap(result.Error, "delete processed events")
	}
	return result.RowsAffected, nil
}
