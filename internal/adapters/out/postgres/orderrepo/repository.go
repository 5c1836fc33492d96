package orderrepo

import (
	"context"
	"errors"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/pkg/errs"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormOrderRepository implements ports.OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Add saves a new order together with its items.
func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflictErrorWithCause("order", aggregate.ID().String(), err)
		}
		return pkgerrors.Wrap(err, "insert order")
	}
	return nil
}

// Update writes status and version guarded by the version the aggregate was
// loaded with.
func (r *GormOrderRepository) Update(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND version = ?", aggregate.ID().Bytes(), aggregate.PersistedVersion()).
		Updates(map[string]any{
			"status":     int(aggregate.Status()),
			"version":    aggregate.Version(),
			"updated_at": gorm.Expr("now()"),
		})
	if result.Error != nil {
		return pkgerrors.Wrap(result.Error, "update order")
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var stored int64
	err := r.db.WithContext(ctx).Model(&OrderDTO{}).
		Select("version").
		Where("id = ?", aggregate.ID().Bytes()).
		Scan(&stored).Error
	switch {
	case err != nil:
		return pkgerrors.Wrap(err, "read order version")
	case stored == 0:
		return errs.NewObjectNotFoundError("order", aggregate.ID().String())
	default:
		return errs.NewConflictErrorWithCause("order", aggregate.ID().String(),
			errs.NewValueIsOutOfRangeError("version", aggregate.PersistedVersion(), stored, stored))
	}
}

// Get retrieves an order by ID with its items in original order.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&dto, "id = ?", id.Bytes()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, pkgerrors.Wrap(err, "select order")
	}

	return toDomain(dto)
}
