package bondtrack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestNetModelCloseWaitsForDetect(t *testing.T) {

	// a closed model skips the network release so no ONNX file is needed
	m := &NetModel{closed: true}

	// hold the lock the way a running Detect does
	m.mu.Lock()

	returned := make(chan error, 1)

	go func() {
		returned <- m.Close()
	}()

	select {
	case <-returned:
		t.Fatal("Close returned while Detect held the model")
	case <-time.After(50 * time.Millisecond):
	}

	m.mu.Unlock()

	select {
	case err := <-returned:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close did not return after Detect finished")
	}
}

func TestNetModelDetectAfterClose(t *testing.T) {

	m := &NetModel{closed: true}

	img := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer img.Close()

	_, err := m.Detect(img)
	require.ErrorIs(t, err, ErrModelClosed)
	assert.NoError(t, m.Close())
}
