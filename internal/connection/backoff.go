package connection

import (
	"math"
	"sync"
	"time"

	"github.com/rickgao/parkwatch/internal/clock"
)

// BackoffConfig configures the reconnection policy.
type BackoffConfig struct {
	BaseDelay   time.Duration // Delay before the first retry
	MaxDelay    time.Duration // Upper bound for any single delay
	MaxAttempts int           // Retries per closure before giving up
}

// DefaultBackoffConfig returns sensible defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 5,
	}
}

// Delay returns the wait before retry attempt n (1-based):
// BaseDelay * 2^(n-1), capped at MaxDelay.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := c.BaseDelay
	for i := 1; i < attempt; i++ {
		if c.MaxDelay > 0 && d >= c.MaxDelay {
			break
		}
		if d > math.MaxInt64/2 {
			return math.MaxInt64
		}
		d *= 2
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Backoff tracks retry attempts for one connection and schedules at most
// one pending retry at a time.
type Backoff struct {
	cfg   BackoffConfig
	clock clock.Clock

	mu      sync.Mutex
	attempt int
	timer   clock.Timer
	gen     uint64
}

// NewBackoff creates a reconnection policy. A nil clock uses the real clock.
func NewBackoff(cfg BackoffConfig, clk clock.Clock) *Backoff {
	if clk == nil {
		clk = clock.Real()
	}
	return &Backoff{cfg: cfg, clock: clk}
}

// Schedule arranges for retry to run after the next delay. It returns the
// attempt number and its delay, or ok=false once MaxAttempts is used up.
// While a retry is already pending nothing new is scheduled.
func (b *Backoff) Schedule(retry func()) (attempt int, delay time.Duration, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		return b.attempt, 0, true
	}
	if b.attempt >= b.cfg.MaxAttempts {
		return b.attempt, 0, false
	}

	b.attempt++
	delay = b.cfg.Delay(b.attempt)
	b.gen++
	gen := b.gen

	b.timer = b.clock.AfterFunc(delay, func() {
		b.mu.Lock()
		if b.gen != gen || b.timer == nil {
			b.mu.Unlock()
			return
		}
		b.timer = nil
		b.mu.Unlock()

		retry()
	})

	return b.attempt, delay, true
}

// Cancel stops a pending retry. Returns true if one was pending.
func (b *Backoff) Cancel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelLocked()
}

func (b *Backoff) cancelLocked() bool {
	if b.timer == nil {
		return false
	}
	b.timer.Stop()
	b.timer = nil
	b.gen++
	return true
}

// Reset cancels any pending retry and zeroes the attempt counter.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelLocked()
	b.attempt = 0
}

// Attempt returns the number of retries scheduled since the last Reset.
func (b *Backoff) Attempt() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempt
}

// Pending reports whether a retry is scheduled.
func (b *Backoff) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timer != nil
}
