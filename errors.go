package bondtrack

import "errors"

var (
	// ErrModelLoad is returned when the detection model can not be read
	ErrModelLoad = errors.New("bondtrack: failed to load model")

	// ErrStopTimeout is returned by Detector.Stop when the worker did not
	// exit within the configured bound
	ErrStopTimeout = errors.New("bondtrack: detector stop timed out")

	// ErrWorkerRunning is returned by Detector.Start while the worker left
	// behind by a timed out Stop has not exited yet
	ErrWorkerRunning = errors.New("bondtrack: previous detector worker still running")

	// ErrModelClosed is returned by Detect after the model was closed
	ErrModelClosed = errors.New("bondtrack: model closed")

	// ErrNoLabels is returned when resolving targets against an empty label set
	ErrNoLabels = errors.New("bondtrack: no model labels")
)
