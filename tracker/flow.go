package tracker

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// FlowParams are the tuning values of the FlowRefiner
type FlowParams struct {
	// MaxCorners is the maximum number of feature points tracked
	MaxCorners int
	// Quality is the minimum accepted corner quality relative to the best
	Quality float64
	// MinDistance is the minimum pixel distance between seeded points
	MinDistance float64
	// MinPoints is the number of points below which features are re-seeded
	MinPoints int
	// MinSurvivors is the number of points that must survive optical flow
	// for the box to be refined
	MinSurvivors int
	// Pad is the number of pixels added around the survivors bounds
	Pad int
}

// DefaultFlowParams returns the tuning used for the bonder tip
func DefaultFlowParams() FlowParams {
	return FlowParams{
		MaxCorners:   40,
		Quality:      0.01,
		MinDistance:  4,
		MinPoints:    6,
		MinSurvivors: 4,
		Pad:          2,
	}
}

// point is a sub pixel feature location
type point struct {
	X, Y float32
}

// FlowRefiner tightens a tracked box around feature points followed with
// pyramidal Lucas-Kanade optical flow.  It never starts a track on its own
// and only refines a box it is given.
type FlowRefiner struct {
	params   FlowParams
	prevGray gocv.Mat
	hasPrev  bool
	points   []point
}

// NewFlowRefiner returns a FlowRefiner, Close must be called to free the
// native buffers
func NewFlowRefiner(params FlowParams) *FlowRefiner {

	if params.MinSurvivors <= 0 {
		params.MinSurvivors = DefaultFlowParams().MinSurvivors
	}

	// reseed before the point set can drop below what a step needs
	if params.MinPoints < params.MinSurvivors {
		params.MinPoints = params.MinSurvivors
	}

	return &FlowRefiner{
		params:   params,
		prevGray: gocv.NewMat(),
	}
}

// Reset forgets the previous frame and all feature points
func (f *FlowRefiner) Reset() {
	f.hasPrev = false
	f.points = nil
}

// Points returns the number of feature points currently tracked
func (f *FlowRefiner) Points() int {
	return len(f.points)
}

// Close frees the native buffers
func (f *FlowRefiner) Close() error {
	f.Reset()
	return f.prevGray.Close()
}

// Update refines box on frame.  When there is no previous frame or too few
// points the features are re-seeded inside box and box is returned as is.
func (f *FlowRefiner) Update(frame gocv.Mat, box image.Rectangle) image.Rectangle {

	bounds := Bounds(frame.Cols(), frame.Rows())
	clamped := ClampRect(box, bounds)

	if Degenerate(clamped) {
		f.Reset()
		return box
	}

	gray := gocv.NewMat()
	toGray(frame, &gray)

	// the current frame becomes the previous one on return
	defer func() {
		f.prevGray.Close()
		f.prevGray = gray
		f.hasPrev = true
	}()

	if !f.hasPrev || len(f.points) < f.params.MinPoints {
		f.seed(gray, clamped)
		return box
	}

	survivors := f.track(gray)
	f.points = survivors

	if len(survivors) < f.params.MinSurvivors {
		return box
	}

	refined := ClampRect(f.pointBounds(survivors), bounds)

	if Degenerate(refined) {
		return box
	}

	return refined
}

// seed finds good features to track inside box
func (f *FlowRefiner) seed(gray gocv.Mat, box image.Rectangle) {

	f.points = f.points[:0]

	roi := gray.Region(box)
	defer roi.Close()

	corners := gocv.NewMat()
	defer corners.Close()

	gocv.GoodFeaturesToTrack(roi, &corners, f.params.MaxCorners,
		f.params.Quality, f.params.MinDistance)

	for i := 0; i < corners.Rows(); i++ {
		v := corners.GetVecfAt(i, 0)

		if len(v) < 2 {
			continue
		}

		// offset roi coordinates back to the frame
		f.points = append(f.points, point{
			X: v[0] + float32(box.Min.X),
			Y: v[1] + float32(box.Min.Y),
		})
	}
}

// track follows the current points from the previous frame into gray and
// returns those that were found
func (f *FlowRefiner) track(gray gocv.Mat) []point {

	prevPts := gocv.NewMatWithSize(len(f.points), 2, gocv.MatTypeCV32F)
	defer prevPts.Close()

	for i, p := range f.points {
		prevPts.SetFloatAt(i, 0, p.X)
		prevPts.SetFloatAt(i, 1, p.Y)
	}

	nextPts := gocv.NewMat()
	defer nextPts.Close()

	status := gocv.NewMat()
	defer status.Close()

	errMat := gocv.NewMat()
	defer errMat.Close()

	gocv.CalcOpticalFlowPyrLK(f.prevGray, gray, prevPts, nextPts, &status, &errMat)

	survivors := make([]point, 0, len(f.points))

	for i := 0; i < nextPts.Rows() && i < status.Rows(); i++ {

		if status.GetUCharAt(i, 0) != 1 {
			continue
		}

		p := point{
			X: nextPts.GetFloatAt(i, 0),
			Y: nextPts.GetFloatAt(i, 1),
		}

		if !finite(p.X) || !finite(p.Y) {
			continue
		}

		survivors = append(survivors, p)

		if len(survivors) >= f.params.MaxCorners {
			break
		}
	}

	return survivors
}

// pointBounds returns the bounds of pts padded by Pad pixels
func (f *FlowRefiner) pointBounds(pts []point) image.Rectangle {

	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY

	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}

	pad := f.params.Pad

	return image.Rect(
		int(math.Floor(float64(minX)))-pad,
		int(math.Floor(float64(minY)))-pad,
		int(math.Ceil(float64(maxX)))+pad,
		int(math.Ceil(float64(maxY)))+pad,
	)
}

// toGray converts frame to a single channel grey image
func toGray(frame gocv.Mat, gray *gocv.Mat) {

	switch frame.Channels() {
	case 1:
		frame.CopyTo(gray)
	case 4:
		gocv.CvtColor(frame, gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(frame, gray, gocv.ColorBGRToGray)
	}
}

// finite reports if v is neither NaN nor infinite
func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
