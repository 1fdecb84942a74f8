package bondtrack

import "time"

// DefaultSubmitInterval is the default minimum time between frames offered
// to the Detector, roughly one frame in three at 30 fps
const DefaultSubmitInterval = 100 * time.Millisecond

// Throttle limits how often frames are submitted for detection.  It is used
// from a single goroutine.
type Throttle struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewThrottle returns a Throttle allowing one event per interval.  An
// interval of zero or less allows every event.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		now:      time.Now,
	}
}

// Allow reports if the interval has elapsed since the last allowed event
// and if so records now as the last event
func (t *Throttle) Allow() bool {

	now := t.now()

	if t.interval > 0 && !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}

	t.last = now
	return true
}

// Reset forgets the last event so the next call to Allow succeeds
func (t *Throttle) Reset() {
	t.last = time.Time{}
}

// Interval returns the configured interval
func (t *Throttle) Interval() time.Duration {
	return t.interval
}
