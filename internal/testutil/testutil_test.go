package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventually(t *testing.T) {
	t.Run("condition met immediately", func(t *testing.T) {
		called := false
		Eventually(t, func() bool {
			called = true
			return true
		}, 100*time.Millisecond, 10*time.Millisecond)

		if !called {
			t.Error("condition function should be called")
		}
	})

	t.Run("condition met after delay", func(t *testing.T) {
		var counter int32
		go func() {
			time.Sleep(20 * time.Millisecond)
			atomic.StoreInt32(&counter, 1)
		}()

		Eventually(t, func() bool {
			return atomic.LoadInt32(&counter) == 1
		}, time.Second, 5*time.Millisecond)
	})
}

func TestWaitForInt64(t *testing.T) {
	var value int64

	go func() {
		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt64(&value, 100)
	}()

	WaitForInt64(t, &value, 100, time.Second)
}

func TestMaxTracker(t *testing.T) {
	var m MaxTracker
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			m.Enter()
			time.Sleep(20 * time.Millisecond)
			m.Leave()
		}()
	}
	close(start)
	wg.Wait()

	if m.Max() < 1 || m.Max() > 3 {
		t.Errorf("Max() = %d, want 1..3", m.Max())
	}
	if m.Enter() != 1 {
		t.Error("counter should be back at zero after all Leave calls")
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	c.Advance(time.Minute)
	AssertEqual(t, c.Now(), start.Add(time.Minute))
}

func TestMockWriter(t *testing.T) {
	w := NewMockWriter()
	fmt.Fprint(w, "task failed\n")
	fmt.Fprint(w, "task failed again\n")

	AssertEqual(t, w.WriteCount(), 2)
	AssertEqual(t, w.Count("task failed"), 2)
	AssertEqual(t, w.Contains("again"), true)
}

func TestAssertEqual(t *testing.T) {
	AssertEqual(t, 1, 1)
	AssertNotEqual(t, "a", "b")
}
