// Package buyer holds the read side of the Buyer aggregate. The ordering core
// only looks buyers up to enrich integration events.
package buyer

import (
	"errors"
	"strings"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"
	"ordering/internal/pkg/guard"
)

var ErrBuyerIsNotConstructed = errors.New("Buyer must be created via NewBuyer constructor")

type Buyer struct {
	id   kernel.UUID
	name string

	guard guard.ConstructorGuard
}

func NewBuyer(id kernel.UUID, name string) (*Buyer, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.NewValueIsRequiredError("name")
	}

	return &Buyer{id: id, name: name, guard: guard.NewConstructorGuard()}, nil
}

func (b *Buyer) Validate() error {
	if b == nil {
		return ErrBuyerIsNotConstructed
	}
	return b.guard.Validate(ErrBuyerIsNotConstructed)
}

func (b *Buyer) ID() kernel.UUID {
	return b.id
}

func (b *Buyer) Name() string {
	return b.name
}
