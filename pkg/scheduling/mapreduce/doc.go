/*
Package mapreduce runs a processor over a keyed collection in parallel and
reassembles the results in the input's order.

A Processor has four optional stages, each receiving the output of the
previous one:

	preprocess -> map -> reduce -> postprocess

At least one of Map and Reduce must be set, otherwise New returns a
ConfigurationError.

# Quick Start

	proc := mapreduce.Processor{
		Name: "double",
		Map: func(ctx context.Context, key, value interface{}) (interface{}, interface{}, error) {
			return key, value.(int) * 2, nil
		},
		Pool: &workerpool.Config{WorkerCount: 2},
	}

	out, err := mapreduce.Run(ctx, proc, []interface{}{10, 20, 30})
	// out == collection.Sequence{20, 40, 60}

# Keys and Shapes

After preprocess the working data must be a keyed collection (see package
collection): a Table, a Mapping, or a Sequence. Anything else fails with an
InvalidInputError. Map is called once per (key, value) pair on a fresh
worker pool, and the results are rebuilt into a collection of the same kind
and key order as the input, whatever order the calls complete in.

# Failures

A Map call that returns an error or panics is logged and its key holds
collection.Placeholder in the output; the run carries on. Execute reports
those keys in Result.FailedKeys and Config.OnTaskFailure sees each of them
as it happens:

	result, err := p.Execute(ctx, input)
	for _, key := range result.FailedKeys {
		log.Printf("no result for %v", key)
	}

Errors from Preprocess, Reduce or Postprocess halt the run and are returned
as a *errors.StageError.

# Cancellation

When ctx is canceled during the map stage no further keys are submitted,
the pool is drained, and the run returns ctx.Err() along with the partially
filled collection. A Map call that is already running is not interrupted
unless it watches its context.

# Rate-limited Services

Processors that call out to external APIs can bound the call rate with a
throttle and skip repeated calls with a cache:

	limiter, _ := throttle.New(10, 5)
	proc.Throttle = limiter
	proc.Cache = memo.NewMemoryCache(time.Hour)

Only successful results are cached.

# Observability

Each run gets a uuid run ID that tags its logs and its OpenTelemetry spans
(one for the run, one per stage). Setting Config.Metrics records runs,
stage durations, placeholders, throttle waits and cache hits in Prometheus,
and wraps the run's pool in a workerpool.MetricsPool.
*/
package mapreduce
