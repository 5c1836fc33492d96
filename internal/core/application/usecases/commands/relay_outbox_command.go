package commands

import (
	"errors"

	"ordering/internal/pkg/guard"
)

var ErrRelayOutboxCommandIsNotConstructed = errors.New(
	"RelayOutboxCommand must be created via NewRelayOutboxCommand constructor",
)

// RelayOutboxCommand drains one batch of the outbox onto the bus. It is
// issued by the relay job on every tick.
type RelayOutboxCommand struct {
	guard guard.ConstructorGuard
}

func NewRelayOutboxCommand() RelayOutboxCommand {
	return RelayOutboxCommand{guard: guard.NewConstructorGuard()}
}

func (c RelayOutboxCommand) Validate() error {
	return c.guard.Validate(ErrRelayOutboxCommandIsNotConstructed)
}
