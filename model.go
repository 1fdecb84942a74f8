package bondtrack

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/wirebond/bondtrack/postprocess"
	"gocv.io/x/gocv"
)

// Model runs object detection on an image that has already been letterboxed
// to the model input size.  Returned boxes are in model input coordinates.
type Model interface {
	Detect(img gocv.Mat) ([]postprocess.DetectResult, error)
	Labels() []string
	Close() error
}

// NetModel is a YOLOv8 ONNX model run on the CPU with the OpenCV DNN module
type NetModel struct {
	net    gocv.Net
	labels []string
	size   image.Point
	yolo   *postprocess.YOLOv8
	mu     sync.Mutex
	closed bool
}

// NewNetModel loads the ONNX model file.  The labels define the class ids
// the model was trained with.
func NewNetModel(modelFile string, labels []string,
	params postprocess.YOLOv8Params) (*NetModel, error) {

	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, modelFile, ErrNoLabels)
	}

	if _, err := os.Stat(modelFile); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	net := gocv.ReadNetFromONNX(modelFile)

	if net.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, modelFile)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	params.ObjectClassNum = len(labels)

	return &NetModel{
		net:    net,
		labels: labels,
		size:   image.Pt(params.InputWidth, params.InputHeight),
		yolo:   postprocess.NewYOLOv8(params),
	}, nil
}

// Detect runs inference on the letterboxed BGR image
func (m *NetModel) Detect(img gocv.Mat) ([]postprocess.DetectResult, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrModelClosed
	}

	if img.Empty() {
		return nil, fmt.Errorf("empty input image")
	}

	// scale to [0,1] and swap BGR to RGB
	blob := gocv.BlobFromImage(img, 1.0/255.0, m.size,
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.net.SetInput(blob, "")

	output := m.net.Forward("")
	defer output.Close()

	return m.yolo.DetectObjects(output)
}

// Labels returns the class labels of the model
func (m *NetModel) Labels() []string {
	return m.labels
}

// Close releases the network.  It waits for a Detect call in progress to
// return first.
func (m *NetModel) Close() error {

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true

	return m.net.Close()
}
