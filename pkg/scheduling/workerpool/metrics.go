package workerpool

import (
	"context"

	"github.com/ghdlab/mapflow/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
type MetricsPool struct {
	Pool
	name     string
	registry *metrics.Registry
}

// NewWithMetrics creates a pool whose tasks are recorded in registry under
// the pool's name. A nil registry uses metrics.Default().
func NewWithMetrics(config Config, registry *metrics.Registry) (*MetricsPool, error) {
	if registry == nil {
		registry = metrics.Default()
	}
	if config.Name == "" {
		config.Name = "default"
	}

	mp := &MetricsPool{
		name:     config.Name,
		registry: registry,
	}

	onStart := config.OnTaskStart
	config.OnTaskStart = func(workerID int, task Task) {
		mp.registry.WorkerPoolActive.WithLabelValues(mp.name).Inc()
		if onStart != nil {
			onStart(workerID, task)
		}
	}

	onComplete := config.OnTaskComplete
	config.OnTaskComplete = func(workerID int, result Result) {
		mp.record(result)
		if onComplete != nil {
			onComplete(workerID, result)
		}
	}

	pool, err := NewWithConfigSafe(config)
	if err != nil {
		return nil, err
	}
	mp.Pool = pool
	mp.registry.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(pool.Size()))

	return mp, nil
}

func (mp *MetricsPool) record(result Result) {
	mp.registry.WorkerPoolActive.WithLabelValues(mp.name).Dec()
	mp.registry.TaskDuration.WithLabelValues(mp.name).Observe(result.Duration.Seconds())

	if result.Error != nil {
		mp.registry.TasksFailed.WithLabelValues(mp.name).Inc()
		return
	}
	mp.registry.TasksCompleted.WithLabelValues(mp.name).Inc()
	if result.CallbackError != nil {
		mp.registry.CallbacksFailed.WithLabelValues(mp.name).Inc()
	}
}

// Submit counts the submission and delegates to the wrapped pool.
func (mp *MetricsPool) Submit(task Task, callback Callback) {
	mp.registry.TasksSubmitted.WithLabelValues(mp.name).Inc()
	mp.Pool.Submit(task, callback)
}

// SubmitWithContext counts accepted submissions and delegates to the wrapped pool.
func (mp *MetricsPool) SubmitWithContext(ctx context.Context, task Task, callback Callback) error {
	if err := mp.Pool.SubmitWithContext(ctx, task, callback); err != nil {
		return err
	}
	mp.registry.TasksSubmitted.WithLabelValues(mp.name).Inc()
	return nil
}
