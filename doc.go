/*
Package mapflow runs map-reduce jobs over keyed collections on a bounded
worker pool.

Collections (pkg/collection):
  - Sequence, Mapping and Table views with a shared key/value contract
  - Placeholder entries for keys whose map call failed
  - JSON input and output that keep key order

Scheduling (pkg/scheduling):
  - workerpool: bounded pool with backpressure and serialized callbacks
  - mapreduce: preprocess, parallel map, reduce and postprocess stages
  - throttle: token bucket shared by all map calls of a processor
  - scheduler: cron-driven recurring runs

Supporting packages:
  - memo: in-memory and Redis memoization of map results
  - config: file, env and flag configuration for the mapflow command
  - metrics: Prometheus instrumentation
  - logger: structured logging

Example usage:

	import "github.com/ghdlab/mapflow/pkg/scheduling/mapreduce"

	out, err := mapreduce.Map(ctx, []interface{}{1, 2, 3},
		func(ctx context.Context, key, value interface{}) (interface{}, error) {
			return value.(int) * 10, nil
		}, 16)
*/
package mapflow
