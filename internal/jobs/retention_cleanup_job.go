package jobs

import (
	"context"
	"log/slog"
	"time"

	"ordering/internal/core/application/usecases/commands"
)

// RetentionCleanupJob deletes delivered outbox entries and processed-event
// records once they fall out of their retention windows.
type RetentionCleanupJob struct {
	*scheduledJob
	handler commands.CleanupRetentionCommandHandler
	command commands.CleanupRetentionCommand
}

func NewRetentionCleanupJob(
	handler commands.CleanupRetentionCommandHandler,
	schedule string,
	outboxRetention time.Duration,
	processedEventRetention time.Duration,
	logger *slog.Logger,
) (*RetentionCleanupJob, error) {
	cmd, err := commands.NewCleanupRetentionCommand(outboxRetention, processedEventRetention)
	if err != nil {
		return nil, err
	}

	j := &RetentionCleanupJob{handler: handler, command: cmd}
	j.scheduledJob = newScheduledJob("retention_cleanup_job", schedule, j.Run, logger)
	return j, nil
}

func (j *RetentionCleanupJob) Run(ctx context.Context) {
	report, err := j.handler.Handle(ctx, j.command)
	if err != nil {
		j.logger.ErrorContext(ctx, "retention cleanup failed", "error", err)
		return
	}

	j.logger.InfoContext(ctx, "retention cleanup finished",
		"outbox_entries", report.OutboxEntries,
		"processed_events", report.ProcessedEvents,
	)
}
