package tracker

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wirebond/bondtrack"
)

func testManager(factory *fakeFactory) *Manager {

	opts := DefaultManagerOptions()

	for _, kind := range bondtrack.TargetKinds {
		opts.Targets[kind] = testTargetOptions(kind, factory)
	}

	return NewManager(opts)
}

func tipSet(seq uint64, box image.Rectangle) bondtrack.DetectionSet {

	set := bondtrack.NewDetectionSet(seq)
	set.Set(bondtrack.Tip, bondtrack.Detection{
		Box:        box,
		Confidence: 0.8,
		Timestamp:  time.Now(),
	})

	return set
}

func TestManagerTipScenario(t *testing.T) {

	frame := blankFrame(t)
	bounds := Bounds(frame.Cols(), frame.Rows())

	// the native tracker follows the tip for six frames then loses it
	factory := &fakeFactory{build: map[Algorithm]func() *fakeTracker{
		CSRT: succeeding(6, image.Pt(1, 0)),
	}}

	m := testManager(factory)
	defer m.Close()

	// a single detection then ten frames where polling returns the same set
	set := tipSet(1, image.Rect(100, 100, 140, 160))

	var prev image.Rectangle
	var okRun int
	lost := false

	for i := 0; i <= 10; i++ {
		snap := m.Update(frame, set)
		tip := snap.Get(bondtrack.Tip)

		require.True(t, tip.Valid, "frame %d", i)
		assert.Equal(t, tip.Box, tip.Box.Intersect(bounds))

		if tip.OK {
			assert.False(t, lost, "ok after loss at frame %d", i)
			okRun++
		} else {
			lost = true
		}

		if i > 0 {
			assert.InDelta(t, prev.Min.X, tip.Box.Min.X, 4, "frame %d", i)
			assert.InDelta(t, prev.Min.Y, tip.Box.Min.Y, 4, "frame %d", i)
			assert.InDelta(t, prev.Max.X, tip.Box.Max.X, 4, "frame %d", i)
			assert.InDelta(t, prev.Max.Y, tip.Box.Max.Y, 4, "frame %d", i)
		}

		prev = tip.Box

		reel := snap.Get(bondtrack.Reel)
		assert.False(t, reel.Valid)
		assert.False(t, reel.OK)
	}

	assert.Equal(t, 6, okRun)

	// the same set was only ingested once
	require.Len(t, factory.created, 1)

	tip := m.Target(bondtrack.Tip).State()
	assert.Equal(t, 6, tip.Hits)
	assert.Equal(t, 5, tip.Misses)
	assert.Equal(t, Degraded, tip.Phase)

	assert.Len(t, m.Trail().GetPoints(bondtrack.Tip), 6)
	assert.Nil(t, m.Trail().GetPoints(bondtrack.Reel))
}

func TestManagerIngestsNewerSets(t *testing.T) {

	frame := blankFrame(t)

	factory := &fakeFactory{build: map[Algorithm]func() *fakeTracker{
		CSRT: succeeding(100, image.Pt(0, 0)),
		KCF:  succeeding(100, image.Pt(0, 0)),
	}}

	m := testManager(factory)
	defer m.Close()

	// nothing detected yet
	snap := m.Update(frame, bondtrack.DetectionSet{})
	assert.Zero(t, snap.Seq)
	assert.False(t, snap.AnyOK())

	snap = m.Update(frame, tipSet(1, image.Rect(100, 100, 140, 160)))
	assert.Equal(t, uint64(1), snap.Seq)
	assert.True(t, snap.Get(bondtrack.Tip).OK)

	set := tipSet(2, image.Rect(110, 100, 150, 160))
	set.Set(bondtrack.Reel, bondtrack.Detection{Box: image.Rect(400, 300, 500, 400), Confidence: 0.7})

	snap = m.Update(frame, set)
	assert.Equal(t, uint64(2), snap.Seq)
	assert.Equal(t, image.Rect(110, 100, 150, 160), snap.Get(bondtrack.Tip).Box)
	assert.Equal(t, image.Rect(400, 300, 500, 400), snap.Get(bondtrack.Reel).Box)

	// an older set is ignored
	snap = m.Update(frame, tipSet(1, image.Rect(100, 100, 140, 160)))
	assert.Equal(t, uint64(2), snap.Seq)
	assert.Len(t, factory.created, 3)
	assert.Equal(t, uint64(4), snap.Frame)
}

func TestManagerIngestBeforeStep(t *testing.T) {

	frame := blankFrame(t)

	factory := &fakeFactory{build: map[Algorithm]func() *fakeTracker{
		KCF: succeeding(100, image.Pt(0, 0)),
	}}

	m := testManager(factory)
	defer m.Close()

	set := bondtrack.NewDetectionSet(1)
	set.Set(bondtrack.Reel, bondtrack.Detection{Box: image.Rect(400, 300, 500, 400), Confidence: 0.7})

	m.Ingest(frame, set)
	snap := m.Step(frame)

	reel := snap.Get(bondtrack.Reel)
	assert.True(t, reel.OK)
	assert.Equal(t, 1, reel.Hits)
	assert.Equal(t, "kcf", string(reel.Algorithm))
}

func TestManagerSkipTo(t *testing.T) {

	frame := blankFrame(t)

	factory := &fakeFactory{build: map[Algorithm]func() *fakeTracker{
		CSRT: succeeding(100, image.Pt(0, 0)),
	}}

	m := testManager(factory)
	defer m.Close()

	// a set left over from a previous session
	stale := tipSet(5, image.Rect(100, 100, 140, 160))
	m.SkipTo(stale.Seq)

	snap := m.Update(frame, stale)
	assert.False(t, snap.Get(bondtrack.Tip).Valid)
	assert.Empty(t, factory.created)

	// skipping backwards has no effect
	m.SkipTo(2)

	snap = m.Update(frame, tipSet(6, image.Rect(100, 100, 140, 160)))
	assert.True(t, snap.Get(bondtrack.Tip).OK)
	assert.Equal(t, uint64(6), snap.Seq)
}
