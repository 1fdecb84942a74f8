package tracker

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wirebond/bondtrack"
)

func TestTrail(t *testing.T) {

	trail := NewTrail(3)

	for i := 0; i < 5; i++ {
		trail.Add(bondtrack.Tip, image.Rect(i*10, 0, i*10+10, 10))
	}

	assert.Equal(t, []image.Point{{25, 5}, {35, 5}, {45, 5}},
		trail.GetPoints(bondtrack.Tip))
	assert.Nil(t, trail.GetPoints(bondtrack.Reel))

	// returned points are a copy
	pts := trail.GetPoints(bondtrack.Tip)
	pts[0] = image.Pt(-1, -1)
	assert.Equal(t, image.Pt(25, 5), trail.GetPoints(bondtrack.Tip)[0])

	trail.Reset()
	assert.Nil(t, trail.GetPoints(bondtrack.Tip))
}

func TestTrailDisabled(t *testing.T) {

	trail := NewTrail(0)
	trail.Add(bondtrack.Tip, image.Rect(0, 0, 10, 10))

	assert.Nil(t, trail.GetPoints(bondtrack.Tip))
}
