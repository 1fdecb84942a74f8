package postprocess

import (
	"errors"
	"fmt"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// ErrOutputShape is returned when the Model output tensor does not have the
// layout expected by the post processor
var ErrOutputShape = errors.New("postprocess: unexpected output tensor shape")

// YOLOv8 defines the struct for YOLOv8 model inference post processing of the
// single float32 output tensor produced by an ONNX export run through the
// OpenCV DNN module
type YOLOv8 struct {
	// Params are the Model configuration parameters
	Params YOLOv8Params
	// nextID is a counter that increments and provides the next number
	// for each detection result ID
	nextID atomic.Int64
}

// YOLOv8Params defines the struct containing the YOLOv8 parameters to use
// for post processing operations
type YOLOv8Params struct {
	// BoxThreshold is the minimum probability score required for a bounding box
	// region to be considered for processing
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes for both to be kept
	NMSThreshold float32
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with.  Zero means it is taken from the output tensor shape
	ObjectClassNum int
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned
	MaxObjectNumber int
	// InputWidth is the pixel width of the Model input, boxes are clamped to it
	InputWidth int
	// InputHeight is the pixel height of the Model input, boxes are clamped to it
	InputHeight int
}

// YOLOv8DefaultParams returns an instance of YOLOv8Params configured with
// default values featuring:
// - Object Classes: taken from the output tensor
// - Box Threshold: 0.25
// - NMS Threshold: 0.45
// - Maximum Object Number: 64
// - Input Size: 416x416
func YOLOv8DefaultParams() YOLOv8Params {
	return YOLOv8Params{
		BoxThreshold:    0.25,
		NMSThreshold:    0.45,
		ObjectClassNum:  0,
		MaxObjectNumber: 64,
		InputWidth:      416,
		InputHeight:     416,
	}
}

// NewYOLOv8 returns an instance of the YOLOv8 post processor
func NewYOLOv8(p YOLOv8Params) *YOLOv8 {
	return &YOLOv8{
		Params: p,
	}
}

// DetectObjects takes the output Mat of a forward pass, shaped
// [1, 4+classes, anchors], and returns the detected objects
func (y *YOLOv8) DetectObjects(output gocv.Mat) ([]DetectResult, error) {

	sizes := output.Size()

	if len(sizes) != 3 || sizes[0] != 1 {
		return nil, fmt.Errorf("%w: got %v", ErrOutputShape, sizes)
	}

	data, err := output.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error getting output tensor data: %w", err)
	}

	return y.DetectTensor(data, sizes[1], sizes[2])
}

// DetectTensor decodes a channel major output tensor where each of the
// channels rows holds one value for every anchor.  The first four channels
// are the box center x, center y, width and height followed by one score per
// object class
func (y *YOLOv8) DetectTensor(data []float32, channels, anchors int) ([]DetectResult, error) {

	classNum := channels - 4

	if classNum <= 0 || len(data) < channels*anchors {
		return nil, fmt.Errorf("%w: %d channels, %d anchors, %d values",
			ErrOutputShape, channels, anchors, len(data))
	}

	if y.Params.ObjectClassNum > 0 && classNum != y.Params.ObjectClassNum {
		return nil, fmt.Errorf("%w: model has %d classes, expected %d",
			ErrOutputShape, classNum, y.Params.ObjectClassNum)
	}

	maxW := float32(y.Params.InputWidth)
	maxH := float32(y.Params.InputHeight)

	cands := make([]candidate, 0)

	for i := 0; i < anchors; i++ {

		maxScore := float32(-1)
		maxClassID := -1

		for c := 0; c < classNum; c++ {
			score := data[(4+c)*anchors+i]

			if score > maxScore {
				maxScore = score
				maxClassID = c
			}
		}

		if maxScore < y.Params.BoxThreshold {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		box := BoxRect{
			Left:   cx - w/2,
			Top:    cy - h/2,
			Right:  cx + w/2,
			Bottom: cy + h/2,
		}

		if maxW > 0 && maxH > 0 {
			box.Left = clampf(box.Left, 0, maxW)
			box.Top = clampf(box.Top, 0, maxH)
			box.Right = clampf(box.Right, 0, maxW)
			box.Bottom = clampf(box.Bottom, 0, maxH)
		}

		cands = append(cands, candidate{
			box:   box,
			prob:  maxScore,
			class: maxClassID,
		})
	}

	if len(cands) == 0 {
		// no object detected
		return nil, nil
	}

	kept := nms(cands, y.Params.NMSThreshold, y.Params.MaxObjectNumber)

	// collate objects into a result for returning
	group := make([]DetectResult, 0, len(kept))

	for _, c := range kept {
		group = append(group, DetectResult{
			Box:         c.box,
			Probability: c.prob,
			Class:       c.class,
			ID:          y.nextID.Add(1),
		})
	}

	return group, nil
}
