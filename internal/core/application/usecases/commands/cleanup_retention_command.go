package commands

import (
	"errors"
	"time"

	"ordering/internal/pkg/errs"
	"ordering/internal/pkg/guard"
)

var ErrCleanupRetentionCommandIsNotConstructed = errors.New(
	"CleanupRetentionCommand must be created via NewCleanupRetentionCommand constructor",
)

// CleanupRetentionCommand removes delivered outbox entries and processed-event
// records older than their retention windows.
type CleanupRetentionCommand struct {
	outboxRetention         time.Duration
	processedEventRetention time.Duration

	guard guard.ConstructorGuard
}

func NewCleanupRetentionCommand(outboxRetention, processedEventRetention time.Duration) (CleanupRetentionCommand, error) {
	if outboxRetention <= 0 {
		return CleanupRetentionCommand{}, errs.NewValueIsOutOfRangeError("outbox retention", outboxRetention, "1ns", "unbounded")
	}
	if processedEventRetention <= 0 {
		return CleanupRetentionCommand{}, errs.NewValueIsOutOfRangeError(
			"processed event retention", processedEventRetention, "1ns", "unbounded")
	}

	return CleanupRetentionCommand{
		outboxRetention:         outboxRetention,
		processedEventRetention: processedEventRetention,
		guard:                   guard.NewConstructorGuard(),
	}, nil
}

func (c CleanupRetentionCommand) Validate() error {
	return c.guard.Validate(ErrCleanupRetentionCommandIsNotConstructed)
}

func (c CleanupRetentionCommand) OutboxRetention() time.Duration {
	return c.outboxRetention
}

func (c CleanupRetentionCommand) ProcessedEventRetention() time.Duration {
	return c.processedEventRetention
}
