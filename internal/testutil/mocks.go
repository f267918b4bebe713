package testutil

import (
	"bytes"
	"strings"
	"sync"
	"time"
)

// MockClock implements a Clock interface for testing with controllable time.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock starting at the given time.
// If zero time is provided, uses current time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// MockWriter is a goroutine-safe io.Writer that records everything written,
// typically used as a log sink.
type MockWriter struct {
	buf        bytes.Buffer
	mu         sync.Mutex
	writeCount int
}

// NewMockWriter creates a new MockWriter.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write implements io.Writer.
func (mw *MockWriter) Write(p []byte) (int, error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.writeCount++
	return mw.buf.Write(p)
}

// String returns the current buffer contents.
func (mw *MockWriter) String() string {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.buf.String()
}

// Contains reports whether the buffer contains substr.
func (mw *MockWriter) Contains(substr string) bool {
	return strings.Contains(mw.String(), substr)
}

// Count returns the number of non-overlapping occurrences of substr.
func (mw *MockWriter) Count(substr string) int {
	return strings.Count(mw.String(), substr)
}

// WriteCount returns the number of Write calls.
func (mw *MockWriter) WriteCount() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.writeCount
}
