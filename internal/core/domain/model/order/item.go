package order

import (
	"errors"
	"fmt"

	"ordering/internal/pkg/errs"
	"ordering/internal/pkg/guard"
)

var ErrItemIsNotConstructed = errors.New("Item must be created via NewItem constructor")

// Item is an order line. Items are fixed at checkout; the core never edits them.
type Item struct {
	productID   int64
	productName string
	units       int
	unitPrice   int64 // minor currency units

	guard guard.ConstructorGuard
}

// NewItem validates and creates an order line.
//
// Business rules:
//   - productID must be positive
//   - units must be positive
//   - unitPrice must not be negative
func NewItem(productID int64, productName string, units int, unitPrice int64) (Item, error) {
	if err := errors.Join(
		validateProductID(productID),
		validateUnits(units),
		validateUnitPrice(unitPrice),
	); err != nil {
		return Item{}, err
	}

	return Item{
		productID:   productID,
		productName: productName,
		units:       units,
		unitPrice:   unitPrice,
		guard:       guard.NewConstructorGuard(),
	}, nil
}

func (i Item) Validate() error {
	return i.guard.Validate(ErrItemIsNotConstructed)
}

func (i Item) ProductID() int64 {
	return i.productID
}

func (i Item) ProductName() string {
	return i.productName
}

func (i Item) Units() int {
	return i.units
}

func (i Item) UnitPrice() int64 {
	return i.unitPrice
}

// Total is units × unit price.
func (i Item) Total() int64 {
	return int64(i.units) * i.unitPrice
}

func validateProductID(productID int64) error {
	if productID <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("product id is invalid", fmt.Errorf("%d is not greater than 0", productID))
	}
	return nil
}

func validateUnits(units int) error {
	if units <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("units is invalid", fmt.Errorf("%d is not greater than 0", units))
	}
	return nil
}

func validateUnitPrice(price int64) error {
	if price < 0 {
		return errs.NewValueIsInvalidErrorWithCause("unit price is invalid", fmt.Errorf("%d is negative", price))
	}
	return nil
}
