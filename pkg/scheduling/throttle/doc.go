/*
Package throttle limits how often map functions may call a rate-limited
service.

Pool capacity bounds how many calls are in flight; a throttle bounds how many
start per second. Upstream APIs such as GitHub reject clients that exceed
either, so processors that fan out over such a service set both:

	limiter, err := throttle.New(10, 5) // 10 calls/s, bursts of 5
	if err != nil {
		return err
	}

	proc := mapreduce.Processor{
		Name:     "repo-stars",
		Map:      fetchStars,
		Pool:     &workerpool.Config{WorkerCount: 16},
		Throttle: limiter,
	}

The limiter is a token bucket: Burst tokens are available up front and Rate
tokens are added per second. Wait reserves a token, possibly ahead of time,
and sleeps until it becomes valid; canceling the context returns the token.
*/
package throttle
