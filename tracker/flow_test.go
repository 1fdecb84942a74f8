package tracker

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowRefinerSeedsThenRefines(t *testing.T) {

	f := NewFlowRefiner(DefaultFlowParams())
	defer f.Close()

	box := image.Rect(190, 140, 260, 210)
	frame := texturedFrame(t, image.Pt(200, 150))

	// first frame only seeds points
	assert.Equal(t, box, f.Update(frame, box))
	require.GreaterOrEqual(t, f.Points(), DefaultFlowParams().MinPoints)
	assert.LessOrEqual(t, f.Points(), DefaultFlowParams().MaxCorners)

	// no motion, the box tightens around the texture
	refined := f.Update(frame, box)
	assert.False(t, Degenerate(refined))
	assert.Equal(t, refined, refined.Intersect(box))
	assert.Less(t, refined.Dx(), box.Dx())

	// texture moves by (3,2)
	moved := texturedFrame(t, image.Pt(203, 152))
	shifted := f.Update(moved, box)

	assert.InDelta(t, refined.Min.X+3, shifted.Min.X, 1.5)
	assert.InDelta(t, refined.Min.Y+2, shifted.Min.Y, 1.5)
	assert.InDelta(t, refined.Max.X+3, shifted.Max.X, 1.5)
	assert.InDelta(t, refined.Max.Y+2, shifted.Max.Y, 1.5)
}

func TestFlowRefinerDegenerateBoxResets(t *testing.T) {

	f := NewFlowRefiner(DefaultFlowParams())
	defer f.Close()

	frame := texturedFrame(t, image.Pt(200, 150))
	f.Update(frame, image.Rect(190, 140, 260, 210))
	require.Greater(t, f.Points(), 0)

	outside := image.Rect(700, 500, 720, 520)
	assert.Equal(t, outside, f.Update(frame, outside))
	assert.Zero(t, f.Points())
}

func TestFlowRefinerFeaturelessRegion(t *testing.T) {

	f := NewFlowRefiner(DefaultFlowParams())
	defer f.Close()

	frame := blankFrame(t)
	box := image.Rect(100, 100, 140, 160)

	for i := 0; i < 3; i++ {
		assert.Equal(t, box, f.Update(frame, box))
		assert.Zero(t, f.Points())
	}
}

func TestFlowRefinerPointThresholds(t *testing.T) {

	tests := []struct {
		name          string
		points        int
		survivors     int
		wantPoints    int
		wantSurvivors int
	}{
		{"defaults", 6, 4, 6, 4},
		{"zero points", 0, 4, 4, 4},
		{"points below survivors", 2, 5, 5, 5},
		{"zero survivors", 0, 0, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			params := DefaultFlowParams()
			params.MinPoints = tt.points
			params.MinSurvivors = tt.survivors

			f := NewFlowRefiner(params)
			defer f.Close()

			assert.Equal(t, tt.wantPoints, f.params.MinPoints)
			assert.Equal(t, tt.wantSurvivors, f.params.MinSurvivors)
		})
	}
}
