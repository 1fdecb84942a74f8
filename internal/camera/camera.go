// Package camera finds and opens the bonder camera.
package camera

import (
	"errors"
	"fmt"

	"github.com/wirebond/bondtrack/internal/log"
	"gocv.io/x/gocv"
)

var (
	// ErrNotFound is returned when no device index yields a frame
	ErrNotFound = errors.New("camera: no camera found")
	// ErrOpen is returned when a device can not be opened
	ErrOpen = errors.New("camera: failed to open device")
	// ErrReadFailed is returned when a frame can not be read from an open
	// camera, it ends the current session
	ErrReadFailed = errors.New("camera: failed to read frame")
)

// capture is the part of gocv.VideoCapture used by Camera
type capture interface {
	IsOpened() bool
	Set(prop gocv.VideoCaptureProperties, param float64)
	Get(prop gocv.VideoCaptureProperties) float64
	Read(m *gocv.Mat) bool
	Close() error
}

// openDevice opens a capture device by index
var openDevice = func(index int) (capture, error) {
	return gocv.OpenVideoCapture(index)
}

// Camera is an open capture device
type Camera struct {
	cap   capture
	index int
}

// Open opens the camera at index and requests the given frame size and
// rate.  The device may choose a different mode, see Size.
func Open(index, width, height, fps int) (*Camera, error) {

	vc, err := openDevice(index)

	if err != nil {
		return nil, fmt.Errorf("%w: index %d: %w", ErrOpen, index, err)
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: index %d", ErrOpen, index)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	vc.Set(gocv.VideoCaptureFPS, float64(fps))

	return &Camera{
		cap:   vc,
		index: index,
	}, nil
}

// Find probes device indexes 0 to maxIndex and returns the first camera
// that opens and delivers a frame
func Find(maxIndex, width, height, fps int) (*Camera, error) {

	frame := gocv.NewMat()
	defer frame.Close()

	for i := 0; i <= maxIndex; i++ {

		cam, err := Open(i, width, height, fps)

		if err != nil {
			log.Debug("camera probe failed", "index", i, "error", err)
			continue
		}

		if err := cam.Read(&frame); err != nil {
			log.Debug("camera probe gave no frame", "index", i)
			cam.Close()
			continue
		}

		w, h := cam.Size()
		log.Info("camera found", "index", i, "width", w, "height", h)

		return cam, nil
	}

	return nil, fmt.Errorf("%w: probed indexes 0-%d", ErrNotFound, maxIndex)
}

// Index returns the device index of the camera
func (c *Camera) Index() int {
	return c.index
}

// Size returns the frame size reported by the device
func (c *Camera) Size() (int, int) {
	return int(c.cap.Get(gocv.VideoCaptureFrameWidth)),
		int(c.cap.Get(gocv.VideoCaptureFrameHeight))
}

// Read reads the next frame into dst
func (c *Camera) Read(dst *gocv.Mat) error {

	if !c.cap.Read(dst) || dst.Empty() {
		return fmt.Errorf("%w: index %d", ErrReadFailed, c.index)
	}

	return nil
}

// Close releases the device
func (c *Camera) Close() error {
	return c.cap.Close()
}
