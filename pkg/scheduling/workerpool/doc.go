/*
Package workerpool provides a bounded worker pool for I/O-bound tasks.

A pool runs at most Size() task bodies at a time. Submissions beyond that
block the submitting goroutine until a worker frees up, so a burst of
submissions never spawns more than Size() goroutines. Each successful task
may carry a callback; callbacks of one pool are serialized, which makes them
a safe place to merge results into a structure that is not itself
goroutine-safe. Task execution is never serialized.

Basic usage:

	pool := workerpool.New(8)

	var (
		lengths = make(map[string]int) // guarded by the pool's callback lock
	)
	for _, url := range urls {
		url := url
		pool.Submit(workerpool.TaskFunc(func(ctx context.Context) (interface{}, error) {
			return fetchLength(ctx, url)
		}), func(v interface{}) error {
			lengths[url] = v.(int)
			return nil
		})
	}
	pool.Shutdown() // every task and callback has finished

Failure Isolation:

A task that returns an error or panics is logged through the process-wide
logger and swallowed: Submit does not report it, its callback is not
invoked, and the pool keeps running. A failing callback is logged the same
way and does not change the task's outcome. Use Config.OnTaskComplete or
TotalFailed to observe failures programmatically.

Capacity:

	WorkerCount == 0   DefaultWorkerCount(), twice the CPU count
	WorkerCount == 1   synchronous: Submit runs the task and its callback
	                   inline on the caller's goroutine before returning
	WorkerCount >= 2   that many worker goroutines

Shutdown:

Shutdown closes the pool to new work, waits for every accepted task and
callback to finish, and is safe to call more than once. Submitting after
Shutdown is a usage error and panics. Callbacks must not submit to their
own pool.

There is no per-task deadline. A task that never returns holds its worker
forever; pass a context with a deadline through SubmitWithContext if the
task honours it.
*/
package workerpool
