package throttle

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ghdlab/mapflow/pkg/common/errors"
)

// Limit is the number of calls allowed per second. Inf disables throttling.
type Limit float64

// Inf is the infinite rate limit; it allows all calls.
var Inf = Limit(math.Inf(1))

// Every converts a minimum interval between calls to a Limit.
func Every(interval time.Duration) Limit {
	if interval <= 0 {
		return Inf
	}
	return Limit(time.Second) / Limit(interval)
}

// Limiter gates calls to a rate-limited service using a token bucket.
// Its methods are safe for concurrent use by pool workers.
type Limiter interface {
	// Allow reports whether a call may happen now. It does not block.
	Allow() bool

	// Wait blocks until a call may happen or ctx is done.
	Wait(ctx context.Context) error

	// Limit returns the refill rate.
	Limit() Limit

	// Burst returns the bucket capacity.
	Burst() int

	// Tokens returns the number of tokens currently available.
	Tokens() float64
}

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Config holds configuration options for creating a Limiter.
type Config struct {
	// Rate is the number of tokens added per second. Zero allows only the
	// initial burst.
	Rate Limit `mapstructure:"rate" validate:"gte=0"`

	// Burst is the maximum number of tokens that can be stored, and so the
	// number of calls that may start back to back.
	Burst int `mapstructure:"burst" validate:"gte=0"`

	// Clock provides the current time. If nil, SystemClock is used.
	Clock Clock `mapstructure:"-"`
}

// Enabled reports whether the config describes a throttle at all. A zero
// Config means calls are not throttled.
func (c Config) Enabled() bool {
	return c.Rate > 0 || c.Burst > 0
}

// DefaultBurst is the burst a config with a rate but no burst gets.
const DefaultBurst = 1

// ApplyDefaults gives a rate without a burst DefaultBurst, so calls are
// spread evenly at the configured rate.
func (c *Config) ApplyDefaults() {
	if c.Rate > 0 && c.Burst == 0 {
		c.Burst = DefaultBurst
	}
}

// Validate checks the rate and burst.
func (c Config) Validate() error {
	if c.Rate < 0 {
		return errors.NewValidationError("throttle", "rate", c.Rate, "rate cannot be negative").
			WithHint("use a positive value, or leave rate and burst unset to disable throttling")
	}
	if c.Burst <= 0 {
		return errors.NewValidationError("throttle", "burst", c.Burst, "burst must be positive").
			WithHint("burst determines how many calls can start back to back")
	}
	return nil
}

// tokenBucket implements the Limiter interface.
type tokenBucket struct {
	mu         sync.Mutex
	limit      Limit
	burst      int
	tokens     float64
	lastUpdate time.Time
	clock      Clock
}

// New creates a limiter refilling at rate with the given burst.
func New(rate Limit, burst int) (Limiter, error) {
	return NewWithConfig(Config{Rate: rate, Burst: burst})
}

// NewWithConfig creates a limiter, validating config first. The bucket
// starts full.
func NewWithConfig(config Config) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	return &tokenBucket{
		limit:      config.Rate,
		burst:      config.Burst,
		tokens:     float64(config.Burst),
		lastUpdate: config.Clock.Now(),
		clock:      config.Clock,
	}, nil
}

// Allow reports whether a call may happen now.
func (tb *tokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.updateTokens(tb.clock.Now())
	if tb.limit == Inf || tb.tokens >= 1 {
		if tb.limit != Inf {
			tb.tokens--
		}
		return true
	}
	return false
}

// Wait blocks until a call can happen.
func (tb *tokenBucket) Wait(ctx context.Context) error {
	// Check if context is already canceled
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	delay, ok := tb.reserve()
	if !ok {
		return errors.NewOperationError("throttle", "wait", context.DeadlineExceeded).
			WithContext("zero rate and no tokens left")
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		tb.cancel()
		return ctx.Err()
	}
}

// Limit returns the refill rate.
func (tb *tokenBucket) Limit() Limit {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limit
}

// Burst returns the bucket capacity.
func (tb *tokenBucket) Burst() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.burst
}

// Tokens returns the number of tokens currently available. It is negative
// while callers are queued in Wait.
func (tb *tokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.updateTokens(tb.clock.Now())
	return tb.tokens
}

// reserve takes one token, possibly on credit, and returns how long the
// caller must wait before using it.
func (tb *tokenBucket) reserve() (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.limit == Inf {
		return 0, true
	}

	tb.updateTokens(tb.clock.Now())
	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}
	if tb.limit == 0 {
		return 0, false
	}

	needed := 1 - tb.tokens
	tb.tokens-- // Can go negative
	return time.Duration(float64(time.Second) * needed / float64(tb.limit)), true
}

// cancel returns a reserved token that was not used.
func (tb *tokenBucket) cancel() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.updateTokens(tb.clock.Now())
	tb.tokens = math.Min(tb.tokens+1, float64(tb.burst))
}

// updateTokens adds tokens based on the time elapsed since the last update.
func (tb *tokenBucket) updateTokens(now time.Time) {
	if tb.limit == Inf {
		tb.tokens = float64(tb.burst)
		tb.lastUpdate = now
		return
	}

	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 || tb.limit == 0 {
		tb.lastUpdate = now
		return
	}

	tb.tokens = math.Min(tb.tokens+elapsed.Seconds()*float64(tb.limit), float64(tb.burst))
	tb.lastUpdate = now
}
