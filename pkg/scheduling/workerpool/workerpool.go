package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	mferrors "github.com/ghdlab/mapflow/pkg/common/errors"
	"github.com/ghdlab/mapflow/pkg/logger"
)

// Submit schedules a task. It blocks while every worker is busy.
func (p *workerPool) Submit(task Task, callback Callback) {
	if err := p.SubmitWithContext(context.Background(), task, callback); err != nil {
		p.log.Error("submit rejected", logger.Fields(logger.FieldError, err))
	}
}

// SubmitWithContext schedules a task, giving up if ctx is done before a
// worker accepts it. On a synchronous pool the task runs before it returns,
// and concurrent submitters take turns.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task, callback Callback) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Check if context is already canceled before attempting to queue
	select {
	case <-ctx.Done():
		return fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	default:
	}

	qt := queuedTask{ctx: ctx, task: task, callback: callback}
	atomic.AddInt64(&p.totalSubmitted, 1)

	if p.taskQueue == nil {
		p.inlineMu.Lock()
		defer p.inlineMu.Unlock()
		p.execute(-1, qt)
		return nil
	}

	select {
	case p.taskQueue <- qt:
		return nil
	case <-ctx.Done():
		atomic.AddInt64(&p.totalSubmitted, -1)
		return fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	}
}

// Shutdown drains the pool. Workers exit once the queue is closed and empty;
// after they are joined no callback can still be running, which the
// lock/unlock of callbackMu and the settled count both confirm.
func (p *workerPool) Shutdown() {
	p.shutdownOnce.Do(func() {
		if p.taskQueue != nil {
			close(p.taskQueue)
			p.workerWg.Wait()
		}

		p.callbackMu.Lock()
		//nolint:staticcheck // empty critical section: waits out any callback holding the lock
		p.callbackMu.Unlock()

		submitted := p.TotalSubmitted()
		completed := p.TotalCompleted()
		if submitted != completed {
			p.log.Error("pool drained with unsettled tasks", logger.Fields(
				"submitted", submitted,
				"completed", completed,
			))
		}

		p.log.Debug("pool shut down", logger.Fields(
			"submitted", submitted,
			"failed", p.TotalFailed(),
			"peak_active", p.PeakActive(),
		))
	})
}

// run is the main loop for a worker.
func (p *workerPool) run(id int) {
	defer p.workerWg.Done()

	for qt := range p.taskQueue {
		p.execute(id, qt)
	}
}

// execute runs one task and, on success, its callback.
func (p *workerPool) execute(workerID int, qt queuedTask) {
	p.enter()
	if p.config.OnTaskStart != nil {
		p.config.OnTaskStart(workerID, qt.task)
	}

	start := time.Now()
	value, err := p.runTask(workerID, qt)
	duration := time.Since(start)
	atomic.AddInt64(&p.active, -1)

	result := Result{
		Task:     qt.task,
		Value:    value,
		Error:    err,
		Duration: duration,
		WorkerID: workerID,
	}

	if err != nil {
		atomic.AddInt64(&p.totalFailed, 1)
	} else if qt.callback != nil {
		result.CallbackError = p.runCallback(workerID, qt, value)
	}

	atomic.AddInt64(&p.totalCompleted, 1)

	if p.config.OnTaskComplete != nil {
		p.config.OnTaskComplete(workerID, result)
	}
}

// enter marks a task body as executing and tracks the peak.
func (p *workerPool) enter() {
	n := atomic.AddInt64(&p.active, 1)
	for {
		peak := atomic.LoadInt64(&p.peakActive)
		if n <= peak || atomic.CompareAndSwapInt64(&p.peakActive, peak, n) {
			return
		}
	}
}

// runTask executes the task body, converting errors and panics into a
// logged *errors.TaskError.
func (p *workerPool) runTask(workerID int, qt queuedTask) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(qt.task, r)
			}
			value = nil
			err = &mferrors.TaskError{
				Pool:     p.config.Name,
				Task:     describe(qt.task),
				Cause:    fmt.Errorf("%v", r),
				Panicked: true,
			}
			p.logFailure("task panicked", workerID, qt.task, err, debug.Stack())
		}
	}()

	value, err = qt.task.Execute(qt.ctx)
	if err != nil {
		err = &mferrors.TaskError{
			Pool:  p.config.Name,
			Task:  describe(qt.task),
			Cause: err,
		}
		p.logFailure("task failed", workerID, qt.task, err, nil)
		return nil, err
	}
	return value, nil
}

// runCallback invokes the callback while holding callbackMu.
func (p *workerPool) runCallback(workerID int, qt queuedTask, value interface{}) (err error) {
	p.callbackMu.Lock()
	defer p.callbackMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(qt.task, r)
			}
			err = &mferrors.CallbackError{
				Pool:     p.config.Name,
				Task:     describe(qt.task),
				Cause:    fmt.Errorf("%v", r),
				Panicked: true,
			}
			p.logFailure("callback panicked", workerID, qt.task, err, debug.Stack())
		}
	}()

	if cbErr := qt.callback(value); cbErr != nil {
		err = &mferrors.CallbackError{
			Pool:  p.config.Name,
			Task:  describe(qt.task),
			Cause: cbErr,
		}
		p.logFailure("callback failed", workerID, qt.task, err, nil)
	}
	return err
}

func (p *workerPool) logFailure(msg string, workerID int, task Task, err error, stack []byte) {
	fields := logger.Fields(
		logger.FieldWorkerID, workerID,
		logger.FieldTask, describe(task),
		logger.FieldError, err,
	)
	if stack != nil {
		fields[logger.FieldStack] = string(stack)
	}
	p.log.Error(msg, fields)
}

// describe names a task for logs. Tasks implementing fmt.Stringer name themselves.
func describe(task Task) string {
	if s, ok := task.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", task)
}
