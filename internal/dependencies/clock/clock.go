package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
	// NewTimer returns a timer that fires once after d. Reconnect backoff and
	// periodic sync are driven through this so tests can advance a virtual
	// clock instead of sleeping.
	NewTimer(d time.Duration) Timer
}

// Timer is a single-shot timer. Stop is idempotent and safe to call
// concurrently with the timer firing.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// NewTimer returns a timer backed by time.Timer
func (c *RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (rt *realTimer) C() <-chan time.Time {
	return rt.t.C
}

func (rt *realTimer) Stop() bool {
	return rt.t.Stop()
}
