// Package orderrepo maps the Order aggregate onto the orders and order_items
// tables.
package orderrepo

import (
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO is a row of the orders table. Items are written once with the
// order and never updated.
type OrderDTO struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BuyerID   uuid.UUID `gorm:"type:uuid;index"`
	Status    int       `gorm:"type:smallint"`
	Version   int64
	Items     []ItemDTO `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OrderDTO) TableName() string {
	return "orders"
}

type ItemDTO struct {
	OrderID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position    int       `gorm:"primaryKey;autoIncrement:false"`
	ProductID   int64
	ProductName string
	Units       int
	UnitPrice   int64
}

func (ItemDTO) TableName() string {
	return "order_items"
}

func fromDomain(o *order.Order) OrderDTO {
	items := o.Items()
	dto := OrderDTO{
		ID:      o.ID().Bytes(),
		BuyerID: o.BuyerID().Bytes(),
		Status:  int(o.Status()),
		Version: o.Version(),
		Items:   make([]ItemDTO, 0, len(items)),
	}
	for i, item := range items {
		dto.Items = append(dto.Items, ItemDTO{
			OrderID:     dto.ID,
			Position:    i,
			ProductID:   item.ProductID(),
			ProductName: item.ProductName(),
			Units:       item.Units(),
			UnitPrice:   item.UnitPrice(),
		})
	}
	return dto
}

func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	buyerID, err := kernel.UUIDFromBytes(dto.BuyerID[:])
	if err != nil {
		return nil, err
	}

	items := make([]order.Item, 0, len(dto.Items))
	for _, it := range dto.Items {
		item, itemErr := order.NewItem(it.ProductID, it.ProductName, it.Units, it.UnitPrice)
		if itemErr != nil {
			return nil, itemErr
		}
		items = append(items, item)
	}

	return order.RestoreOrder(id, buyerID, items, order.Status(dto.Status), dto.Version)
}
