package polling

import (
	"sync"
	"time"
)

// Countdown is the human-readable "refresh in Ns" display companion to the
// invalidation loop. It is purely cosmetic: the caller decrements it once a
// second and it wraps back to the full period at zero. It deliberately does
// not synchronize with the invalidation ticker's phase — a manual "refresh
// now" resets the display without touching the real timer, and the two are
// allowed to drift.
type Countdown struct {
	mu      sync.Mutex
	period  int
	seconds int
}

// NewCountdown builds a countdown over the given period, rounded down to
// whole seconds (minimum one).
func NewCountdown(period time.Duration) *Countdown {
	secs := int(period / time.Second)
	if secs < 1 {
		secs = 1
	}
	return &Countdown{period: secs, seconds: secs}
}

// Tick advances the display by one second and returns the remaining count.
// Reaching zero resets to the full period.
func (c *Countdown) Tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seconds--
	if c.seconds <= 0 {
		c.seconds = c.period
	}
	return c.seconds
}

// Remaining returns the currently displayed count without advancing.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seconds
}

// Reset snaps the display back to the full period, as a manual refresh does.
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seconds = c.period
}
