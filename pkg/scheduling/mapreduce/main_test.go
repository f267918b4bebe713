package mapreduce

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection: every run must drain its pool.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
