package mapreduce

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"time"

	"github.com/ghdlab/mapflow/pkg/collection"
	"github.com/ghdlab/mapflow/pkg/common/errors"
	"github.com/ghdlab/mapflow/pkg/logger"
	"github.com/ghdlab/mapflow/pkg/memo"
	"github.com/ghdlab/mapflow/pkg/scheduling/workerpool"
)

// mapTask applies the processor's Map to one entry.
type mapTask struct {
	run   *mapRun
	key   interface{}
	value interface{}
}

func (t *mapTask) String() string {
	return fmt.Sprintf("key=%v", t.key)
}

// Execute consults the cache, waits on the throttle and calls Map.
func (t *mapTask) Execute(ctx context.Context) (interface{}, error) {
	return t.run.call(ctx, t.key, t.value)
}

// mapRun holds the state of one map stage: a fresh pool and accumulator.
type mapRun struct {
	p       *pipeline
	log     *logger.Logger
	results map[interface{}]interface{}
}

// mapStage fans coll out over a new worker pool and reassembles the
// results in coll's order. Keys whose task failed hold a placeholder.
func (p *pipeline) mapStage(ctx context.Context, coll collection.Collection, result *Result, log *logger.Logger) (interface{}, error) {
	run := &mapRun{
		p:       p,
		log:     log,
		results: make(map[interface{}]interface{}, coll.Len()),
	}

	pool, err := p.newPool(result.RunID)
	if err != nil {
		return coll, err
	}

	var submitErr error
	for _, pair := range coll.Pairs() {
		key := pair.Key
		task := &mapTask{run: run, key: key, value: pair.Value}
		err := pool.SubmitWithContext(ctx, task, func(value interface{}) error {
			run.results[key] = value
			return nil
		})
		if err != nil {
			submitErr = err
			break
		}
		result.Mapped++
	}
	pool.Shutdown()

	out := coll.Rebuild(run.results)
	result.FailedKeys = collection.PlaceholderKeys(out)

	if submitErr != nil {
		log.Warn("map stage canceled", logger.Fields(
			"submitted", result.Mapped,
			"total", coll.Len(),
			logger.FieldError, submitErr,
		))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		return out, submitErr
	}

	log.Debug("map stage finished", logger.Fields(
		"mapped", result.Mapped,
		"placeholders", len(result.FailedKeys),
		"peak_active", pool.PeakActive(),
	))
	return out, nil
}

// newPool creates the worker pool for one map stage.
func (p *pipeline) newPool(runID string) (workerpool.Pool, error) {
	config := p.proc.poolConfig()
	if config.Logger == nil {
		config.Logger = p.root.WithFields(logger.Fields(logger.FieldRunID, runID))
	}

	if onFailure := p.config.OnTaskFailure; onFailure != nil {
		onComplete := config.OnTaskComplete
		config.OnTaskComplete = func(workerID int, r workerpool.Result) {
			if t, ok := r.Task.(*mapTask); ok {
				if r.Error != nil {
					onFailure(t.key, r.Error)
				} else if r.CallbackError != nil {
					onFailure(t.key, r.CallbackError)
				}
			}
			if onComplete != nil {
				onComplete(workerID, r)
			}
		}
	}

	if p.config.Metrics != nil {
		return workerpool.NewWithMetrics(config, p.config.Metrics)
	}
	return workerpool.NewWithConfigSafe(config)
}

// call runs Map for one entry, going through the cache and throttle when
// the processor has them.
func (r *mapRun) call(ctx context.Context, key, value interface{}) (interface{}, error) {
	proc := r.p.proc
	name := proc.name()

	var cacheKey string
	if proc.Cache != nil {
		cacheKey = memo.Key(name, key, value)
		cached, err := proc.Cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			r.countCache("hit")
			return cached, nil
		case stderrors.Is(err, errors.ErrCacheMiss):
			r.countCache("miss")
		default:
			r.countCache("error")
			r.log.Warn("cache lookup failed", logger.Fields(logger.FieldKey, key, logger.FieldError, err))
		}
	}

	if proc.Throttle != nil {
		start := time.Now()
		if err := proc.Throttle.Wait(ctx); err != nil {
			return nil, errors.NewOperationError("mapreduce", "throttle", err)
		}
		if r.p.config.Metrics != nil {
			r.p.config.Metrics.ThrottleWait.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}
	}

	gotKey, processed, err := proc.Map(ctx, key, value)
	if err != nil {
		return nil, err
	}
	if !sameKey(key, gotKey) {
		r.log.Warn("map returned a different key, keeping the submitted one", logger.Fields(
			logger.FieldKey, key,
			"returned_key", gotKey,
		))
	}

	if proc.Cache != nil {
		if err := proc.Cache.Set(ctx, cacheKey, processed); err != nil {
			r.log.Warn("cache store failed", logger.Fields(logger.FieldKey, key, logger.FieldError, err))
		}
	}
	return processed, nil
}

func (r *mapRun) countCache(outcome string) {
	if m := r.p.config.Metrics; m != nil {
		m.CacheRequests.WithLabelValues(r.p.proc.name(), outcome).Inc()
	}
}

// sameKey compares keys without panicking on uncomparable types.
func sameKey(a, b interface{}) bool {
	if b != nil && !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

// Map applies fn to every entry of input using workerCount workers and
// returns the reassembled collection. It is shorthand for running a
// processor that only defines Map.
func Map(ctx context.Context, input interface{}, fn func(ctx context.Context, key, value interface{}) (interface{}, error), workerCount int) (collection.Collection, error) {
	proc := Processor{
		Name: "map",
		Map: func(ctx context.Context, key, value interface{}) (interface{}, interface{}, error) {
			v, err := fn(ctx, key, value)
			return key, v, err
		},
		Pool: &workerpool.Config{WorkerCount: workerCount},
	}

	out, err := Run(ctx, proc, input)
	if c, ok := out.(collection.Collection); ok {
		return c, err
	}
	return nil, err
}
