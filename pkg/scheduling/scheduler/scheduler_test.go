package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ghdlab/mapflow/internal/testutil"
	"github.com/ghdlab/mapflow/pkg/logger"
	"github.com/ghdlab/mapflow/pkg/metrics"
)

func newTestScheduler(reg *metrics.Registry) Scheduler {
	return NewWithConfig(Config{Logger: logger.Nop(), Metrics: reg})
}

func TestScheduler_RunsJob(t *testing.T) {
	s := newTestScheduler(nil)
	defer func() { <-s.Stop() }()

	var executed int64
	err := s.Schedule("tick", "@every 1s", func(context.Context) error {
		atomic.AddInt64(&executed, 1)
		return nil
	})
	testutil.AssertNoError(t, err)

	s.Start()
	testutil.Eventually(t, func() bool {
		return atomic.LoadInt64(&executed) >= 1
	}, 3*time.Second, 10*time.Millisecond)

	entries := s.Entries()
	testutil.AssertEqual(t, len(entries), 1)
	testutil.AssertEqual(t, entries[0].ID, "tick")
	testutil.AssertEqual(t, entries[0].Spec, "@every 1s")
}

func TestScheduler_Validation(t *testing.T) {
	s := newTestScheduler(nil)
	defer func() { <-s.Stop() }()

	noop := func(context.Context) error { return nil }

	testutil.AssertError(t, s.Schedule("", "@hourly", noop))
	testutil.AssertError(t, s.Schedule("nil", "@hourly", nil))
	testutil.AssertError(t, s.Schedule("bad", "not a schedule", noop))

	testutil.AssertNoError(t, s.Schedule("dup", "@hourly", noop))
	testutil.AssertError(t, s.Schedule("dup", "@daily", noop))
}

func TestValidate(t *testing.T) {
	for _, spec := range []string{"@hourly", "@every 10m", "0 3 * * *", "*/30 * * * * *"} {
		testutil.AssertNoError(t, Validate(spec))
	}
	testutil.AssertError(t, Validate("61 * * * *"))
}

func TestScheduler_NextAndRemove(t *testing.T) {
	s := newTestScheduler(nil)
	defer func() { <-s.Stop() }()

	testutil.AssertNoError(t, s.Schedule("hourly", "@hourly", func(context.Context) error { return nil }))

	next, ok := s.Next("hourly")
	testutil.AssertEqual(t, ok, true)
	if !next.After(time.Now()) || next.After(time.Now().Add(time.Hour)) {
		t.Errorf("next run %v should be within the coming hour", next)
	}

	testutil.AssertEqual(t, s.Remove("hourly"), true)
	testutil.AssertEqual(t, s.Remove("hourly"), false)
	_, ok = s.Next("hourly")
	testutil.AssertEqual(t, ok, false)
	testutil.AssertEqual(t, len(s.Entries()), 0)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := newTestScheduler(nil)

	var running, maxRunning, started int64
	release := make(chan struct{})
	err := s.Schedule("slow", "@every 1s", func(ctx context.Context) error {
		n := atomic.AddInt64(&running, 1)
		if n > atomic.LoadInt64(&maxRunning) {
			atomic.StoreInt64(&maxRunning, n)
		}
		atomic.AddInt64(&started, 1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		atomic.AddInt64(&running, -1)
		return nil
	})
	testutil.AssertNoError(t, err)

	s.Start()
	testutil.Eventually(t, func() bool { return atomic.LoadInt64(&started) == 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(2200 * time.Millisecond)

	testutil.AssertEqual(t, atomic.LoadInt64(&maxRunning), int64(1))
	testutil.AssertEqual(t, atomic.LoadInt64(&started), int64(1))

	close(release)
	<-s.Stop()
}

func TestScheduler_StopCancelsJobs(t *testing.T) {
	s := newTestScheduler(nil)

	var canceled int64
	var started int64
	testutil.AssertNoError(t, s.Schedule("blocking", "@every 1s", func(ctx context.Context) error {
		atomic.StoreInt64(&started, 1)
		<-ctx.Done()
		atomic.StoreInt64(&canceled, 1)
		return ctx.Err()
	}))

	s.Start()
	testutil.WaitForInt64(t, &started, 1, 3*time.Second)

	select {
	case <-s.Stop():
	case <-time.After(testutil.TestTimeout):
		t.Fatal("Stop did not wait for the running job")
	}
	testutil.AssertEqual(t, atomic.LoadInt64(&canceled), int64(1))
}

func TestScheduler_Metrics(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	s := newTestScheduler(reg)
	defer func() { <-s.Stop() }()

	var runs int64
	testutil.AssertNoError(t, s.Schedule("flaky", "@every 1s", func(context.Context) error {
		if atomic.AddInt64(&runs, 1) == 1 {
			return errors.New("upstream down")
		}
		return nil
	}))

	s.Start()
	testutil.Eventually(t, func() bool {
		return promtest.ToFloat64(reg.ScheduledRuns.WithLabelValues("flaky", "ok")) >= 1
	}, 4*time.Second, 20*time.Millisecond)

	testutil.AssertEqual(t, promtest.ToFloat64(reg.ScheduledRuns.WithLabelValues("flaky", "error")), 1.0)

	entries := s.Entries()
	testutil.AssertEqual(t, entries[0].Failures, int64(1))
}
