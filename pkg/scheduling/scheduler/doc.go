/*
Package scheduler runs jobs, typically pipeline runs, on cron schedules.

It wraps github.com/robfig/cron/v3 with job IDs, structured logging and
Prometheus metrics. A job still running when its next tick arrives is
skipped for that tick, and a panicking job is recovered and logged.

Basic Usage:

	s := scheduler.New()
	defer func() { <-s.Stop() }()

	err := s.Schedule("refresh-urls", "@every 1h", func(ctx context.Context) error {
		_, err := pipeline.Run(ctx, input)
		return err
	})
	if err != nil {
		return err
	}

	s.Start()

Schedules:

Five-field cron expressions, six-field ones with a leading seconds field,
and descriptors are accepted:

	"0 3 * * *"        // 03:00 every day
	"30 0 * * * *"     // 00:00:30 past every hour
	"@hourly"
	"@every 10m"

Validate checks a schedule without registering anything.

Lifecycle:

Jobs receive a context that is canceled by Stop. Stop returns a channel
closed once every running job has returned, so callers can wait for a clean
shutdown:

	<-s.Stop()

Monitoring:

With Config.Metrics set, every run increments
mapflow_scheduler_runs_total{job, status}. Entries reports run and failure
counts along with the previous and next activation times.
*/
package scheduler
