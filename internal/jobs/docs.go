// Package jobs provides scheduled background tasks for the ordering service.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
// Schedules use the six-field format with seconds.
//
// # Available Jobs
//
// 1. OutboxRelayJob - claims a batch of due outbox entries and publishes them
// 2. RetentionCleanupJob - deletes published outbox entries and processed-event records past retention
//
// # Usage
//
//	jobManager := jobs.NewJobManager().
//		Add("outbox relay", jobs.NewOutboxRelayJob(relayHandler, "*/1 * * * * *", logger)).
//		Add("retention cleanup", cleanupJob)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// - Handler errors are logged and the next tick tries again
// - A tick still running when the next one fires is skipped
// - Panics are recovered and logged
// - StopAll waits for running ticks, so a relay never stops mid-publish
package jobs
