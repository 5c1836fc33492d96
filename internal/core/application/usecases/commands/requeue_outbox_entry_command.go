package commands

import (
	"errors"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"
	"ordering/internal/pkg/guard"
)

var ErrRequeueOutboxEntryCommandIsNotConstructed = errors.New(
	"RequeueOutboxEntryCommand must be created via NewRequeueOutboxEntryCommand constructor",
)

// RequeueOutboxEntryCommand returns a dead-lettered entry to the relay.
type RequeueOutboxEntryCommand struct {
	eventID kernel.UUID

	guard guard.ConstructorGuard
}

func NewRequeueOutboxEntryCommand(eventID kernel.UUID) (RequeueOutboxEntryCommand, error) {
	if err := eventID.Validate(); err != nil {
		return RequeueOutboxEntryCommand{}, errs.NewValueIsRequiredErrorWithCause("event id", err)
	}
	return RequeueOutboxEntryCommand{eventID: eventID, guard: guard.NewConstructorGuard()}, nil
}

func (c RequeueOutboxEntryCommand) Validate() error {
	return c.guard.Validate(ErrRequeueOutboxEntryCommandIsNotConstructed)
}

func (c RequeueOutboxEntryCommand) EventID() kernel.UUID {
	return c.eventID
}
