// Package metrics provides Prometheus instrumentation for mapflow components.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mapflow"

// Registry holds all metric instances for mapflow components.
type Registry struct {
	// Worker Pool Metrics
	WorkerPoolSize   *prometheus.GaugeVec
	WorkerPoolActive *prometheus.GaugeVec
	TasksSubmitted   *prometheus.CounterVec
	TasksCompleted   *prometheus.CounterVec
	TasksFailed      *prometheus.CounterVec
	CallbacksFailed  *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec

	// Pipeline Metrics
	PipelineRuns          *prometheus.CounterVec
	PipelineStageDuration *prometheus.HistogramVec
	PipelineItems         *prometheus.CounterVec
	PipelinePlaceholders  *prometheus.CounterVec

	// Supporting Components
	ThrottleWait  *prometheus.HistogramVec
	CacheRequests *prometheus.CounterVec
	ScheduledRuns *prometheus.CounterVec
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the registry bound to prometheus.DefaultRegisterer,
// creating it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Worker Pool Metrics
		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "size",
				Help:      "Worker pool capacity",
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "active_tasks",
				Help:      "Number of tasks currently held by a worker",
			},
			[]string{"pool_name"},
		),

		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks submitted",
			},
			[]string{"pool_name"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks completed successfully",
			},
			[]string{"pool_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that failed or panicked",
			},
			[]string{"pool_name"},
		),

		CallbacksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "callbacks_failed_total",
				Help:      "Total number of result callbacks that failed or panicked",
			},
			[]string{"pool_name"},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing task bodies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		// Pipeline Metrics
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Total number of pipeline runs by outcome",
			},
			[]string{"processor", "status"},
		),

		PipelineStageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"processor", "stage"},
		),

		PipelineItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "items_total",
				Help:      "Total number of keyed items submitted to the map stage",
			},
			[]string{"processor"},
		),

		PipelinePlaceholders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "placeholders_total",
				Help:      "Total number of keys left as placeholders after the map stage",
			},
			[]string{"processor"},
		),

		// Supporting Components
		ThrottleWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "throttle",
				Name:      "wait_duration_seconds",
				Help:      "Time map calls spent waiting for a throttle token",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"processor"},
		),

		CacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "memo",
				Name:      "requests_total",
				Help:      "Map result cache lookups by result",
			},
			[]string{"processor", "result"},
		),

		ScheduledRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "runs_total",
				Help:      "Total number of scheduled job executions by outcome",
			},
			[]string{"job", "status"},
		),
	}
}
