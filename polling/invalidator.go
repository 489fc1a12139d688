// Package polling drives the console's cache invalidation: a fixed-period
// signal that all previously fetched server data should be treated as stale.
// Downstream fetch failures are not its concern; a tick is a pure signal.
package polling

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPeriod is the invalidation interval the console has always used.
const DefaultPeriod = 10 * time.Second

// Ticker abstracts time.Ticker so tests can drive ticks from a fake clock.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock produces tickers and the current time.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type realTicker struct{ t *time.Ticker }

func (rt realTicker) C() <-chan time.Time { return rt.t.C }
func (rt realTicker) Stop()               { rt.t.Stop() }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// Invalidator starts fixed-period invalidation loops.
type Invalidator struct {
	clock Clock
	log   zerolog.Logger
}

// Option configures an Invalidator.
type Option func(*Invalidator)

// WithClock substitutes the clock (primarily for testing).
func WithClock(clock Clock) Option {
	return func(inv *Invalidator) { inv.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(inv *Invalidator) { inv.log = log }
}

// NewInvalidator constructs an Invalidator.
func NewInvalidator(options ...Option) *Invalidator {
	inv := &Invalidator{
		clock: realClock{},
		log:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(inv)
	}
	return inv
}

// Handle cancels a running invalidation loop.
type Handle struct {
	mu        sync.Mutex
	cancelled bool
	done      chan struct{}
}

// Cancel stops the loop. Once Cancel returns, onTick will not be invoked
// again, even for a tick that was already scheduled: cancellation is a state
// checked under the same lock the dispatcher holds, not just a cleared
// timer. Cancel blocks until an in-flight callback finishes, so it must not
// be called from inside onTick. Safe to call more than once.
func (h *Handle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.cancelled {
		h.cancelled = true
		close(h.done)
	}
}

// Start begins invoking onTick every period. A period of zero or less falls
// back to DefaultPeriod.
func (inv *Invalidator) Start(period time.Duration, onTick func()) *Handle {
	if period <= 0 {
		period = DefaultPeriod
	}
	h := &Handle{done: make(chan struct{})}
	ticker := inv.clock.NewTicker(period)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C():
				if !h.dispatch(onTick) {
					return
				}
			}
		}
	}()

	inv.log.Debug().Dur("period", period).Msg("invalidation loop started")
	return h
}

// dispatch runs onTick unless the handle was cancelled. The cancellation
// check and the callback share the handle lock: a tick that raced Cancel is
// dropped, never delivered late.
func (h *Handle) dispatch(onTick func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return false
	}
	onTick()
	return true
}
