package jobs

import (
	"context"
	"log/slog"

	"ordering/internal/core/application/usecases/commands"
)

// OutboxRelayJob drains the outbox onto the message bus on every tick.
type OutboxRelayJob struct {
	*scheduledJob
	handler commands.RelayOutboxCommandHandler
}

func NewOutboxRelayJob(handler commands.RelayOutboxCommandHandler, schedule string, logger *slog.Logger) *OutboxRelayJob {
	j := &OutboxRelayJob{handler: handler}
	j.scheduledJob = newScheduledJob("outbox_relay_job", schedule, j.Run, logger)
	return j
}

// Run relays one batch.
func (j *OutboxRelayJob) Run(ctx context.Context) {
	report, err := j.handler.Handle(ctx, commands.NewRelayOutboxCommand())
	if err != nil {
		j.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
		return
	}

	if report.Claimed == 0 {
		return
	}
	j.logger.InfoContext(ctx, "outbox relayed",
		"claimed", report.Claimed,
		"published", report.Published,
		"retried", report.Retried,
		"dead_lettered", report.DeadLettered,
	)
}
