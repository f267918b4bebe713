/*
Package scheduling groups the execution primitives behind mapflow.

  - workerpool: fixed worker pool for concurrent task execution
  - mapreduce: map-reduce pipeline built on a fresh pool per run
  - throttle: token-bucket pacing of map calls
  - scheduler: cron-like recurring runs

Worker Pool:

	pool := workerpool.New(4) // 4 workers, Submit blocks while all are busy
	defer pool.Shutdown()

	pool.Submit(task, func(value interface{}) error {
		results = append(results, value) // callbacks never overlap
		return nil
	})

Map-Reduce:

	p, _ := mapreduce.New(mapreduce.Processor{
		Map:    fetch,
		Reduce: summarize,
	})
	out, err := p.Run(ctx, urls)

Scheduler:

	s := scheduler.New()
	s.Schedule("nightly", "0 3 * * *", func(ctx context.Context) error {
		_, err := p.Run(ctx, urls)
		return err
	})
	s.Start()
	defer func() { <-s.Stop() }()

All components are safe for concurrent use and honor context cancellation.
*/
package scheduling
