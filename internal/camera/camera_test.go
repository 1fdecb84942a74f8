package camera

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// fakeCapture stands in for a capture device
type fakeCapture struct {
	opened bool
	frames int
	props  map[gocv.VideoCaptureProperties]float64
	closed bool
}

func (f *fakeCapture) IsOpened() bool { return f.opened }

func (f *fakeCapture) Set(prop gocv.VideoCaptureProperties, param float64) {
	f.props[prop] = param
}

func (f *fakeCapture) Get(prop gocv.VideoCaptureProperties) float64 {
	return f.props[prop]
}

func (f *fakeCapture) Read(m *gocv.Mat) bool {

	if f.frames <= 0 {
		return false
	}

	f.frames--

	blank := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer blank.Close()
	blank.CopyTo(m)

	return true
}

func (f *fakeCapture) Close() error {
	f.closed = true
	return nil
}

// useDevices replaces the device opener for the duration of the test
func useDevices(t *testing.T, devices map[int]*fakeCapture) {

	orig := openDevice
	t.Cleanup(func() { openDevice = orig })

	openDevice = func(index int) (capture, error) {
		dev, ok := devices[index]

		if !ok {
			return nil, errors.New("no such device")
		}

		dev.props = make(map[gocv.VideoCaptureProperties]float64)

		return dev, nil
	}
}

func TestFindSkipsUnusableDevices(t *testing.T) {

	closedDev := &fakeCapture{opened: false}
	silentDev := &fakeCapture{opened: true, frames: 0}
	goodDev := &fakeCapture{opened: true, frames: 10}

	useDevices(t, map[int]*fakeCapture{1: closedDev, 2: silentDev, 3: goodDev})

	cam, err := Find(5, 640, 480, 30)
	require.NoError(t, err)
	defer cam.Close()

	assert.Equal(t, 3, cam.Index())
	assert.True(t, closedDev.closed)
	assert.True(t, silentDev.closed)
	assert.False(t, goodDev.closed)

	w, h := cam.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, float64(30), goodDev.props[gocv.VideoCaptureFPS])
}

func TestFindNotFound(t *testing.T) {

	useDevices(t, map[int]*fakeCapture{})

	_, err := Find(2, 640, 480, 30)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenErrors(t *testing.T) {

	useDevices(t, map[int]*fakeCapture{0: {opened: false}})

	_, err := Open(0, 640, 480, 30)
	assert.ErrorIs(t, err, ErrOpen)

	_, err = Open(1, 640, 480, 30)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestReadFailure(t *testing.T) {

	useDevices(t, map[int]*fakeCapture{0: {opened: true, frames: 1}})

	cam, err := Open(0, 640, 480, 30)
	require.NoError(t, err)
	defer cam.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	require.NoError(t, cam.Read(&frame))
	assert.False(t, frame.Empty())

	assert.ErrorIs(t, cam.Read(&frame), ErrReadFailed)
}
