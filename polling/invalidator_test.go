package polling_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/motrack/adminkit/polling"
	"github.com/motrack/adminkit/polling/clockfakes"
)

var epoch = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

func TestInvalidatorTicksAtFixedPeriod(t *testing.T) {
	clock := clockfakes.NewFakeClock(epoch)
	inv := polling.NewInvalidator(polling.WithClock(clock))

	var ticks atomic.Int64
	handle := inv.Start(10*time.Second, func() { ticks.Add(1) })
	defer handle.Cancel()

	clock.Advance(9 * time.Second)
	require.Eventually(t, func() bool { return ticks.Load() == 0 }, 100*time.Millisecond, time.Millisecond)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, time.Millisecond)

	clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return ticks.Load() == 4 }, time.Second, time.Millisecond)
}

func TestCancelBeforeScheduledTickSuppressesCallback(t *testing.T) {
	clock := clockfakes.NewFakeClock(epoch)
	inv := polling.NewInvalidator(polling.WithClock(clock))

	var ticks atomic.Int64
	handle := inv.Start(10*time.Second, func() { ticks.Add(1) })

	// Cancel synchronously before the first scheduled tick is due: the
	// callback must never run, even though the tick gets delivered to the
	// (now dead) loop.
	handle.Cancel()
	clock.Advance(time.Minute)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int64(0), ticks.Load())
}

func TestCancelIsIdempotent(t *testing.T) {
	clock := clockfakes.NewFakeClock(epoch)
	inv := polling.NewInvalidator(polling.WithClock(clock))

	handle := inv.Start(time.Second, func() {})
	handle.Cancel()
	handle.Cancel()
}

func TestNoCallbackAfterCancelReturnsEvenMidRace(t *testing.T) {
	clock := clockfakes.NewFakeClock(epoch)
	inv := polling.NewInvalidator(polling.WithClock(clock))

	var ticks atomic.Int64
	handle := inv.Start(time.Second, func() { ticks.Add(1) })

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, time.Millisecond)

	// Queue a tick and cancel: whatever interleaving the scheduler picks,
	// once Cancel returns the count must never move again.
	clock.Advance(time.Second)
	handle.Cancel()
	after := ticks.Load()

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, after, ticks.Load())
}

func TestZeroPeriodFallsBackToDefault(t *testing.T) {
	clock := clockfakes.NewFakeClock(epoch)
	inv := polling.NewInvalidator(polling.WithClock(clock))

	var ticks atomic.Int64
	handle := inv.Start(0, func() { ticks.Add(1) })
	defer handle.Cancel()

	clock.Advance(polling.DefaultPeriod)
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, time.Millisecond)
}

func TestCountdownWrapsAndResets(t *testing.T) {
	c := polling.NewCountdown(3 * time.Second)
	require.Equal(t, 3, c.Remaining())

	require.Equal(t, 2, c.Tick())
	require.Equal(t, 1, c.Tick())
	// Hitting zero snaps back to the full period.
	require.Equal(t, 3, c.Tick())

	c.Tick()
	c.Reset()
	require.Equal(t, 3, c.Remaining())
}

func TestCountdownDriftsIndependentlyOfInvalidator(t *testing.T) {
	clock := clockfakes.NewFakeClock(epoch)
	inv := polling.NewInvalidator(polling.WithClock(clock))
	c := polling.NewCountdown(10 * time.Second)

	var ticks atomic.Int64
	handle := inv.Start(10*time.Second, func() { ticks.Add(1) })
	defer handle.Cancel()

	// A manual refresh resets the display without resynchronizing the
	// underlying ticker's phase.
	c.Tick()
	c.Tick()
	c.Reset()
	require.Equal(t, 10, c.Remaining())

	clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, time.Millisecond)
	// The display still shows its own count; nothing coupled it to the tick.
	require.Equal(t, 10, c.Remaining())
}

func TestCountdownMinimumOneSecond(t *testing.T) {
	c := polling.NewCountdown(200 * time.Millisecond)
	require.Equal(t, 1, c.Remaining())
}
