package render

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wirebond/bondtrack"
	"github.com/wirebond/bondtrack/tracker"
	"gocv.io/x/gocv"
)

func TestTargetLabel(t *testing.T) {

	tests := []struct {
		name string
		st   tracker.State
		want string
	}{
		{"tracked", tracker.State{Kind: bondtrack.Tip, Valid: true, OK: true, Algorithm: tracker.CSRT}, "tip csrt"},
		{"lost", tracker.State{Kind: bondtrack.Reel, Valid: true, Misses: 4}, "reel lost 4"},
		{"never seen", tracker.State{Kind: bondtrack.Reel}, "reel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TargetLabel(tt.st))
		})
	}
}

func TestStatsText(t *testing.T) {

	text := StatsText(29.96, bondtrack.DetectorStats{
		Inferences:    12,
		Dropped:       30,
		Failures:      1,
		LastInference: 84400 * time.Microsecond,
	})

	assert.Equal(t, "30.0 fps  det 12  drop 30  fail 1  infer 84ms", text)
}

func TestTargetsDrawsTrackedBox(t *testing.T) {

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	var snap tracker.Snapshot
	snap.Targets[bondtrack.Tip] = tracker.State{
		Kind:  bondtrack.Tip,
		Box:   image.Rect(100, 100, 140, 160),
		Valid: true,
		OK:    true,
	}

	Targets(&img, snap, DefaultFont(), 2)

	// left edge of the box in BGR order
	clr := TargetColor(bondtrack.Tip)
	px := img.GetVecbAt(130, 100)
	assert.Equal(t, []uint8{clr.B, clr.G, clr.R}, []uint8{px[0], px[1], px[2]})

	// reel was never seen so nothing is drawn where it would be
	px = img.GetVecbAt(400, 500)
	assert.Equal(t, []uint8{0, 0, 0}, []uint8{px[0], px[1], px[2]})
}
