package workerpool

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghdlab/mapflow/pkg/common/validation"
	"github.com/ghdlab/mapflow/pkg/logger"
)

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task and returns its result value.
	Execute(ctx context.Context) (interface{}, error)
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) (interface{}, error)

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

// Callback receives the value of a successfully completed task. Callbacks of
// one pool never run concurrently with each other.
type Callback func(value interface{}) error

// Result describes a finished task.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Value is what the task returned; nil when Error is set
	Value interface{}

	// Error is the task failure, a *errors.TaskError, or nil
	Error error

	// CallbackError is the callback failure, a *errors.CallbackError, or nil
	CallbackError error

	// Duration is how long the task body took to execute
	Duration time.Duration

	// WorkerID identifies which worker executed the task; -1 for inline execution
	WorkerID int
}

// Pool bounds the number of concurrently executing tasks and funnels their
// results through serialized callbacks.
type Pool interface {
	// Submit schedules task for execution and blocks until a worker accepts
	// it. A non-nil callback is invoked with the task's value after the task
	// succeeds. Task and callback failures are logged and swallowed.
	// Calling Submit after Shutdown is a usage error.
	Submit(task Task, callback Callback)

	// SubmitWithContext is Submit with a bounded wait: it returns ctx.Err()
	// and drops the task if ctx is done before a worker accepts it. The
	// context is also passed to the task.
	SubmitWithContext(ctx context.Context, task Task, callback Callback) error

	// Shutdown blocks until every submitted task and its callback have
	// completed. Calling it more than once is harmless.
	Shutdown()

	// Size returns the capacity of the pool.
	Size() int

	// Synchronous reports whether tasks run inline on the submitting goroutine.
	Synchronous() bool

	// ActiveWorkers returns the number of tasks currently executing.
	ActiveWorkers() int

	// PeakActive returns the highest ActiveWorkers value observed.
	PeakActive() int

	// TotalSubmitted returns the total number of tasks submitted to the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the number of tasks whose body and callback have finished.
	TotalCompleted() int64

	// TotalFailed returns the number of tasks whose body failed.
	TotalFailed() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// Name identifies the pool in logs and metrics.
	Name string `mapstructure:"name"`

	// WorkerCount is the capacity of the pool. Zero selects
	// DefaultWorkerCount; one makes the pool synchronous.
	WorkerCount int `mapstructure:"worker_count" validate:"gte=0"`

	// Logger receives swallowed failures. Defaults to the process-wide logger.
	Logger *logger.Logger `mapstructure:"-"`

	// PanicHandler is called when a task or callback panics, after the panic
	// has been recovered.
	PanicHandler func(task Task, recovered interface{}) `mapstructure:"-"`

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int, task Task) `mapstructure:"-"`

	// OnTaskComplete is called after a task and its callback have finished.
	OnTaskComplete func(workerID int, result Result) `mapstructure:"-"`
}

// DefaultWorkerCount is twice the number of CPUs. Pool tasks are expected to
// wait on network or disk, not to compute.
func DefaultWorkerCount() int {
	return 2 * runtime.NumCPU()
}

// Validate checks the configuration without applying defaults.
func (c Config) Validate() error {
	return validation.ValidateNonNegativeInt("workerpool", "worker_count", c.WorkerCount)
}

func (c Config) withDefaults() Config {
	if c.WorkerCount == 0 {
		c.WorkerCount = DefaultWorkerCount()
	}
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Logger == nil {
		c.Logger = logger.Get()
	}
	c.Logger = c.Logger.WithComponent("workerpool").WithFields(logger.Fields(logger.FieldPool, c.Name))
	return c
}

// queuedTask is a submission waiting for a worker.
type queuedTask struct {
	ctx      context.Context
	task     Task
	callback Callback
}

// workerPool implements the Pool interface.
type workerPool struct {
	config Config
	log    *logger.Logger

	// Core pool state; taskQueue is nil for synchronous pools
	taskQueue    chan queuedTask
	shutdownOnce sync.Once
	workerWg     sync.WaitGroup

	// inlineMu admits one task at a time on a synchronous pool
	inlineMu sync.Mutex

	// callbackMu serializes callbacks
	callbackMu sync.Mutex

	// State tracking
	active         int64
	peakActive     int64
	totalSubmitted int64
	totalCompleted int64
	totalFailed    int64
}

// New creates a worker pool with the given capacity. See Config.WorkerCount.
func New(workerCount int) Pool {
	return NewWithConfig(Config{WorkerCount: workerCount})
}

// NewWithConfig creates a worker pool. It panics on an invalid config; use
// NewWithConfigSafe to get an error instead.
func NewWithConfig(config Config) Pool {
	p, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return p
}

// NewWithConfigSafe creates a worker pool, validating config first.
func NewWithConfigSafe(config Config) (Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	pool := &workerPool{
		config: config,
		log:    config.Logger,
	}

	if config.WorkerCount == 1 {
		return pool, nil
	}

	// Unbuffered: a submission is handed to an idle worker or the
	// submitter waits, so at most WorkerCount tasks are in flight.
	pool.taskQueue = make(chan queuedTask)
	for i := 0; i < config.WorkerCount; i++ {
		pool.workerWg.Add(1)
		go pool.run(i)
	}

	return pool, nil
}

// Size returns the capacity of the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// Synchronous reports whether tasks run inline.
func (p *workerPool) Synchronous() bool {
	return p.taskQueue == nil
}

// ActiveWorkers returns the number of tasks currently executing.
func (p *workerPool) ActiveWorkers() int {
	return int(atomic.LoadInt64(&p.active))
}

// PeakActive returns the highest number of simultaneously executing tasks.
func (p *workerPool) PeakActive() int {
	return int(atomic.LoadInt64(&p.peakActive))
}

// TotalSubmitted returns the total number of tasks submitted to the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return atomic.LoadInt64(&p.totalSubmitted)
}

// TotalCompleted returns the number of settled tasks.
func (p *workerPool) TotalCompleted() int64 {
	return atomic.LoadInt64(&p.totalCompleted)
}

// TotalFailed returns the number of tasks whose body failed.
func (p *workerPool) TotalFailed() int64 {
	return atomic.LoadInt64(&p.totalFailed)
}
