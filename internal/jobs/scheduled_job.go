package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// scheduledJob runs one function on a cron schedule. Overlapping ticks are
// skipped and panics are recovered, both reported through the job logger.
type scheduledJob struct {
	name     string
	schedule string
	run      func(ctx context.Context)
	cron     *cron.Cron
	logger   *slog.Logger
}

func newScheduledJob(name, schedule string, run func(ctx context.Context), logger *slog.Logger) *scheduledJob {
	logger = logger.With("component", name)
	cl := cronLogger{logger: logger}

	return &scheduledJob{
		name:     name,
		schedule: schedule,
		run:      run,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			// Recover must sit inside SkipIfStillRunning: the skip guard only
			// releases its slot when the wrapped job returns normally.
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		logger: logger,
	}
}

func (j *scheduledJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.run(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("job started", "schedule", j.schedule)
	return nil
}

// Stop waits for a running tick to finish.
func (j *scheduledJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("job stopped")
}

// cronLogger adapts slog to cron.Logger. Scheduler chatter goes to debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
