package clockfakes

import (
	"sync"
	"time"

	"github.com/motrack/adminkit/polling"
)

var _ polling.Clock = (*FakeClock)(nil)

// FakeClock is a manually advanced clock for timer tests. Advance moves the
// current time and delivers due ticks synchronously before returning, so
// tests never sleep.
type FakeClock struct {
	lock    sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

// NewFakeClock starts the clock at the given time.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *FakeClock) NewTicker(d time.Duration) polling.Ticker {
	c.lock.Lock()
	defer c.lock.Unlock()
	t := &fakeTicker{
		ch:     make(chan time.Time, 64),
		period: d,
		next:   c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward, delivering every due tick in order.
func (c *FakeClock) Advance(d time.Duration) {
	c.lock.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := make([]*fakeTicker, len(c.tickers))
	copy(tickers, c.tickers)
	c.lock.Unlock()

	for _, t := range tickers {
		t.deliverDue(now)
	}
}

type fakeTicker struct {
	lock    sync.Mutex
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.stopped = true
}

func (t *fakeTicker) deliverDue(now time.Time) {
	t.lock.Lock()
	defer t.lock.Unlock()
	for !t.stopped && !t.next.After(now) {
		select {
		case t.ch <- t.next:
		default: // Receiver lagging, drop like time.Ticker does
		}
		t.next = t.next.Add(t.period)
	}
}
