package commands

import (
	"errors"
	"fmt"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"
	"ordering/internal/pkg/guard"
)

var ErrChangeOrderStatusCommandIsNotConstructed = errors.New(
	"ChangeOrderStatusCommand must be created via NewChangeOrderStatusCommand constructor",
)

// Effect is the status change a command asks for.
type Effect string

const (
	EffectAwaitValidation Effect = "await-validation"
	EffectConfirmStock    Effect = "confirm-stock"
	EffectConfirmPayment  Effect = "confirm-payment"
	EffectShip            Effect = "ship"
	EffectCancel          Effect = "cancel"
)

// Effects lists every effect the handler knows.
func Effects() []Effect {
	return []Effect{EffectAwaitValidation, EffectConfirmStock, EffectConfirmPayment, EffectShip, EffectCancel}
}

// ChangeOrderStatusCommand asks for one status change of one order. It has no
// identity of its own; redelivery is detected from the order's status.
//
// Example:
//
//	cmd, err := NewChangeOrderStatusCommand(orderID, EffectShip)
//	if err != nil {
//	    return err
//	}
//	applied, err := handler.Handle(ctx, cmd)
type ChangeOrderStatusCommand struct {
	orderID kernel.UUID
	effect  Effect

	guard guard.ConstructorGuard
}

func NewChangeOrderStatusCommand(orderID kernel.UUID, effect Effect) (ChangeOrderStatusCommand, error) {
	if err := orderID.Validate(); err != nil {
		return ChangeOrderStatusCommand{}, errs.NewValueIsRequiredErrorWithCause("order id", err)
	}
	if _, ok := transitions[effect]; !ok {
		return ChangeOrderStatusCommand{}, errs.NewValueIsInvalidErrorWithCause(
			"effect",
			fmt.Errorf("%q is not a known effect", effect),
		)
	}

	return ChangeOrderStatusCommand{
		orderID: orderID,
		effect:  effect,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c ChangeOrderStatusCommand) Validate() error {
	return c.guard.Validate(ErrChangeOrderStatusCommandIsNotConstructed)
}

func (c ChangeOrderStatusCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c ChangeOrderStatusCommand) Effect() Effect {
	return c.effect
}
