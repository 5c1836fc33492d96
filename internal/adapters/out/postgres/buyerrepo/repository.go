// Package buyerrepo persists buyers, read by the event translators.
package buyerrepo

import (
	"context"
	"errors"

	"ordering/internal/core/domain/model/buyer"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

type BuyerDTO struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string
}

func (BuyerDTO) TableName() string {
	return "buyers"
}

type GormBuyerRepository struct {
	db *gorm.DB
}

func NewGormBuyerRepository(db *gorm.DB) *GormBuyerRepository {
	return &GormBuyerRepository{db: db}
}

func (r *GormBuyerRepository) Add(ctx context.Context, aggregate *buyer.Buyer) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := BuyerDTO{ID: aggregate.ID().Bytes(), Name: aggregate.Name()}
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflictErrorWithCause("buyer", aggregate.ID().String(), err)
		}
		return pkgerrors.Wrap(err, "insert buyer")
	}
	return nil
}

func (r *GormBuyerRepository) Get(ctx context.Context, id kernel.UUID) (*buyer.Buyer, error) {
	var dto BuyerDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("buyer", id.String())
		}
		return nil, pkgerrors.Wrap(err, "select buyer")
	}

	buyerID, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	return buyer.NewBuyer(buyerID, dto.Name)
}
