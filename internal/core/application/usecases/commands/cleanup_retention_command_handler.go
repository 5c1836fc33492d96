package commands

import (
	"context"
	"log/slog"

	"ordering/internal/core/ports"
	"ordering/internal/pkg/clock"
	"ordering/internal/pkg/errs"
)

// CleanupReport counts the rows removed by one cleanup run.
type CleanupReport struct {
	OutboxEntries   int64
	ProcessedEvents int64
}

type CleanupRetentionCommandHandler interface {
	Handle(ctx context.Context, command CleanupRetentionCommand) (CleanupReport, error)
}

type cleanupRetentionCommandHandler struct {
	uowFactory ports.UnitOfWorkFactory
	clock      clock.Clock
	logger     *slog.Logger
}

func NewCleanupRetentionCommandHandler(
	uowFactory ports.UnitOfWorkFactory,
	clk clock.Clock,
	logger *slog.Logger,
) (CleanupRetentionCommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cleanupRetentionCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
		logger:     logger.With("component", "CleanupRetentionCommandHandler"),
	}, nil
}

// Handle deletes in two independent statements; a failure of the second
// keeps the first.
func (h *cleanupRetentionCommandHandler) Handle(ctx context.Context, command CleanupRetentionCommand) (CleanupReport, error) {
	if err := command.Validate(); err != nil {
		return CleanupReport{}, err
	}

	now := h.clock.Now()
	uow := h.uowFactory.Create()

	var report CleanupReport
	var err error

	report.OutboxEntries, err = uow.OutboxRepository().DeletePublishedBefore(ctx, now.Add(-command.OutboxRetention()))
	if err != nil {
		return report, err
	}

	report.ProcessedEvents, err = uow.ProcessedEventRepository().
		DeleteProcessedBefore(ctx, now.Add(-command.ProcessedEventRetention()))
	if err != nil {
		return report, err
	}

	h.logger.InfoContext(ctx, "retention cleanup done",
		"outbox_entries", report.OutboxEntries,
		"processed_events", report.ProcessedEvents,
	)
	return report, nil
}
