package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wirebond/bondtrack"
)

func TestDefaultChain(t *testing.T) {
	assert.Equal(t, []Algorithm{CSRT, MIL}, DefaultChain(bondtrack.Tip))
	assert.Equal(t, []Algorithm{KCF, MIL}, DefaultChain(bondtrack.Reel))
}

func TestNewVisualTracker(t *testing.T) {

	assert.Contains(t, Algorithms(), MIL)

	vt, err := NewVisualTracker(MIL)
	require.NoError(t, err)
	assert.NoError(t, vt.Close())

	_, err = NewVisualTracker("mosse")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}
