package bondtrack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottle(t *testing.T) {

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	th := NewThrottle(100 * time.Millisecond)
	th.now = func() time.Time { return clock }

	// roughly 30 fps for one second
	allowed := 0

	for i := 0; i < 30; i++ {
		if th.Allow() {
			allowed++
		}
		clock = clock.Add(34 * time.Millisecond)
	}

	assert.Equal(t, 10, allowed)

	th.Reset()
	assert.True(t, th.Allow())
	assert.False(t, th.Allow())
}

func TestThrottleDisabled(t *testing.T) {

	th := NewThrottle(0)

	for i := 0; i < 5; i++ {
		assert.True(t, th.Allow())
	}
}
