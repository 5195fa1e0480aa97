package otp

import (
	"context"
	"sync"
	"time"

	"github.com/brightstay/stayflow/internal/clock"
)

// DefaultResendWait matches the resend lockout shown in the verification UI.
const DefaultResendWait = 60 * time.Second

// Countdown gates the resend action behind a fixed wait. Remaining time is
// derived from a deadline against the injected clock, so state is exact even
// between ticks. The optional Run loop only exists to drive per-second
// callbacks; every Run must be balanced by Stop (or context cancellation)
// before the owning flow is discarded.
type Countdown struct {
	mu       sync.Mutex
	clock    clock.Clock
	duration time.Duration
	deadline time.Time
	stop     chan struct{}
	stopped  bool
}

func NewCountdown(clk clock.Clock, duration time.Duration) *Countdown {
	if duration <= 0 {
		duration = DefaultResendWait
	}
	return &Countdown{
		clock:    clk,
		duration: duration,
		deadline: clk.Now().Add(duration),
	}
}

// Remaining returns whole seconds left, never negative.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	left := c.deadline.Sub(c.clock.Now())
	if left <= 0 {
		return 0
	}
	// Round up so the display never shows 0 while resend is still locked.
	return int((left + time.Second - 1) / time.Second)
}

// CanResend reports whether the countdown has reached zero.
func (c *Countdown) CanResend() bool {
	return c.Remaining() == 0
}

// Reset restarts the full wait, locking resend again.
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = c.clock.Now().Add(c.duration)
}

// Run delivers onTick once per second and onExpire when the countdown hits
// zero, until Stop is called or ctx is done. Callbacks run on the timer
// goroutine; they must not block.
func (c *Countdown) Run(ctx context.Context, onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	if c.stop == nil {
		c.stop = make(chan struct{})
	}
	stop := c.stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		expired := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				remaining := c.Remaining()
				if onTick != nil {
					onTick(remaining)
				}
				if remaining == 0 && !expired {
					expired = true
					if onExpire != nil {
						onExpire()
					}
				}
				if remaining > 0 {
					expired = false
				}
			}
		}
	}()
}

// Stop tears the Run loop down. Safe to call more than once, and required
// whenever the owning flow is discarded: a countdown goroutine that outlives
// its flow is a leak.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil && !c.stopped {
		close(c.stop)
		c.stopped = true
	}
}
