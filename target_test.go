package bondtrack

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestTargetKindString(t *testing.T) {
	assert.Equal(t, "tip", Tip.String())
	assert.Equal(t, "reel", Reel.String())
	assert.Equal(t, "unknown", TargetKind(5).String())
	assert.False(t, TargetKind(-1).Valid())
}

func TestDetectionSet(t *testing.T) {

	set := NewDetectionSet(3)
	assert.True(t, set.Empty())

	want := Detection{Box: image.Rect(1, 2, 30, 40), Confidence: 0.9}
	set.Set(Reel, want)
	set.Set(TargetKind(9), want)

	_, ok := set.Get(Tip)
	assert.False(t, ok)

	got, ok := set.Get(Reel)
	assert.True(t, ok)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("detection mismatch (-want +got):\n%s", diff)
	}

	// copies do not share later writes
	copied := set
	copied.Set(Tip, want)

	_, ok = set.Get(Tip)
	assert.False(t, ok)
	assert.False(t, set.Empty())
	assert.Equal(t, uint64(3), copied.Seq)
}
