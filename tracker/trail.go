package tracker

import (
	"image"
	"sync"

	"github.com/wirebond/bondtrack"
)

// Track represents a track history
type Track struct {
	points []image.Point
}

// Trail is the struct to keep a history of target positions used for
// drawing a trail
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// history of tracked points per target
	history [bondtrack.NumTargets]*Track
	sync.Mutex
}

// NewTrail returns a new trail history instance.  Size is the number of most
// recent points to keep and specifies the maximum length of the trail to
// maintain
func NewTrail(size int) *Trail {

	t := &Trail{
		size: size,
	}

	t.Reset()

	return t
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	for i := range t.history {
		t.history[i] = &Track{}
	}
}

// Add the center of box to the history of the target
func (t *Trail) Add(kind bondtrack.TargetKind, box image.Rectangle) {

	if !kind.Valid() || t.size <= 0 {
		return
	}

	t.Lock()
	defer t.Unlock()

	track := t.history[kind]
	track.points = append(track.points, Center(box))

	// check if history is exceeded and drop oldest point
	if len(track.points) > t.size {
		track.points = track.points[1:]
	}
}

// GetPoints gets a copy of the point history for a target, oldest first
func (t *Trail) GetPoints(kind bondtrack.TargetKind) []image.Point {

	if !kind.Valid() {
		return nil
	}

	t.Lock()
	defer t.Unlock()

	pts := t.history[kind].points

	if len(pts) == 0 {
		// no history yet
		return nil
	}

	out := make([]image.Point, len(pts))
	copy(out, pts)

	return out
}
