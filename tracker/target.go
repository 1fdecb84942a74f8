package tracker

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/wirebond/bondtrack"
	"github.com/wirebond/bondtrack/internal/log"
	"gocv.io/x/gocv"
)

// Phase is the tracking phase of a Target
type Phase int

const (
	// Uninitialized targets have never received a detection
	Uninitialized Phase = iota
	// Tracking targets were located by the visual tracker on the last frame
	// or were just seeded from a detection
	Tracking
	// Degraded targets lost the visual tracker and are predicted by the
	// Kalman filter alone
	Degraded
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case Tracking:
		return "tracking"
	case Degraded:
		return "degraded"
	default:
		return "uninitialized"
	}
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name
func (p *Phase) UnmarshalText(text []byte) error {

	for _, phase := range []Phase{Uninitialized, Tracking, Degraded} {
		if phase.String() == string(text) {
			*p = phase
			return nil
		}
	}

	return fmt.Errorf("tracker: unknown phase %q", text)
}

// State is a read only snapshot of a Target for presentation
type State struct {
	// Kind of target
	Kind bondtrack.TargetKind `json:"kind"`
	// Box is the estimated position, only meaningful when Valid
	Box image.Rectangle `json:"box"`
	// Valid is false until the target has been seeded by a detection
	Valid bool `json:"valid"`
	// OK is true only when the visual tracker located the target this frame
	OK bool `json:"ok"`
	// Misses is the number of consecutive frames without tracker success
	Misses int `json:"misses"`
	// Hits is the number of consecutive frames with tracker success since
	// the last detection
	Hits int `json:"hits"`
	// Algorithm of the active visual tracker, empty if none
	Algorithm Algorithm `json:"algorithm,omitempty"`
	// Phase of the target
	Phase Phase `json:"phase"`
	// ReseedIoU is the overlap of the last detection with the box it
	// replaced, zero after the first detection
	ReseedIoU float32 `json:"reseed_iou"`
}

// TargetOptions configure a Target
type TargetOptions struct {
	// Chain of visual tracker algorithms tried in order
	Chain []Algorithm
	// Factory creates the visual trackers
	Factory Factory
	// Kalman filter tuning
	Kalman KalmanParams
	// Refine enables the optical flow refiner
	Refine bool
	// Flow refiner tuning
	Flow FlowParams
}

// DefaultTargetOptions returns the options for the given target kind.  Only
// the tip is refined with optical flow.
func DefaultTargetOptions(kind bondtrack.TargetKind) TargetOptions {
	return TargetOptions{
		Chain:   DefaultChain(kind),
		Factory: NewVisualTracker,
		Kalman:  DefaultKalmanParams(),
		Refine:  kind == bondtrack.Tip,
		Flow:    DefaultFlowParams(),
	}
}

// Target fuses a native visual tracker, an optional optical flow refiner and
// a Kalman filter to follow a single physical target.  A Target is never
// destroyed, once seeded it keeps predicting through loss until the next
// detection re-seeds it.  It is not safe for concurrent use.
type Target struct {
	kind    bondtrack.TargetKind
	opts    TargetOptions
	kf      *KalmanFilter
	refiner *FlowRefiner
	vt      VisualTracker
	alg     Algorithm

	box   image.Rectangle
	valid bool
	// overlap of the last reseed with the previous estimate
	reseedIoU float32
	ok        bool
	hits      int
	misses    int
	phase     Phase

	log *slog.Logger
}

// NewTarget returns an uninitialized Target
func NewTarget(kind bondtrack.TargetKind, opts TargetOptions) *Target {

	if opts.Factory == nil {
		opts.Factory = NewVisualTracker
	}

	if len(opts.Chain) == 0 {
		opts.Chain = DefaultChain(kind)
	}

	t := &Target{
		kind: kind,
		opts: opts,
		kf:   NewKalmanFilter(opts.Kalman),
		log:  log.With("target", kind.String()),
	}

	if opts.Refine {
		t.refiner = NewFlowRefiner(opts.Flow)
	}

	return t
}

// Kind returns the target kind
func (t *Target) Kind() bondtrack.TargetKind {
	return t.kind
}

// InitFromDetection re-seeds the target from a detected box on frame.  The
// Kalman filter is re-initiated, the visual tracker is recreated on the box
// and the hit and miss counters are reset.  If no visual tracker can be
// created the target continues on predictions alone.
func (t *Target) InitFromDetection(frame gocv.Mat, box image.Rectangle) {

	bounds := Bounds(frame.Cols(), frame.Rows())
	box = ClampRect(box, bounds)

	if Degenerate(box) {
		t.log.Debug("ignoring degenerate detection", "box", box)
		return
	}

	if t.valid {
		t.reseedIoU = IoU(t.box, box)
		prev, next := Center(t.box), Center(box)
		t.log.Debug("reseed jump", "iou", t.reseedIoU, "shift", next.Sub(prev))
	}

	t.kf.Initiate(box)

	t.closeTracker()

	vt, alg, err := createTracker(t.opts.Factory, t.opts.Chain, frame, box)

	if err != nil {
		t.log.Warn("visual tracker unavailable, predicting only", "error", err)
	} else {
		t.vt = vt
		t.alg = alg
	}

	if t.refiner != nil {
		t.refiner.Reset()
	}

	t.box = box
	t.valid = true
	t.ok = false
	t.hits = 0
	t.misses = 0
	t.phase = Tracking

	t.log.Debug("seeded", "box", box, "algorithm", t.alg)
}

// Advance moves the target onto frame and returns the estimated box and if
// the visual tracker located it.  Before the first detection it returns an
// empty box and false.
func (t *Target) Advance(frame gocv.Mat) (image.Rectangle, bool) {

	bounds := Bounds(frame.Cols(), frame.Rows())

	// prediction is the fallback for every failure path
	pred, havePred := t.kf.Predict()

	t.ok = false

	if t.vt == nil {
		t.misses++
		t.usePrediction(pred, havePred, bounds)
		return t.result()
	}

	tracked, ok := t.vt.Update(frame)

	if !ok || Degenerate(ClampRect(tracked, bounds)) {
		t.misses++
		t.usePrediction(pred, havePred, bounds)
		t.log.Debug("visual tracker lost target", "misses", t.misses)
		return t.result()
	}

	box := ClampRect(tracked, bounds)

	if t.refiner != nil {
		box = t.refiner.Update(frame, box)
	}

	t.box = FitRect(t.kf.Update(box), bounds)
	t.valid = true
	t.ok = true
	t.misses = 0
	t.hits++
	t.phase = Tracking

	return t.result()
}

// usePrediction moves the box to the Kalman prediction if there is one
func (t *Target) usePrediction(pred image.Rectangle, ok bool, bounds image.Rectangle) {

	if !ok {
		return
	}

	t.box = FitRect(pred, bounds)
	t.valid = true
	t.phase = Degraded
}

// result returns the published box and ok flag
func (t *Target) result() (image.Rectangle, bool) {

	if !t.valid {
		return image.Rectangle{}, false
	}

	return t.box, t.ok
}

// State returns a snapshot of the target
func (t *Target) State() State {

	s := State{
		Kind:      t.kind,
		Valid:     t.valid,
		OK:        t.ok,
		Misses:    t.misses,
		Hits:      t.hits,
		Algorithm: t.alg,
		Phase:     t.phase,
		ReseedIoU: t.reseedIoU,
	}

	if t.valid {
		s.Box = t.box
	}

	return s
}

// Phase returns the current tracking phase
func (t *Target) Phase() Phase {
	return t.phase
}

// Close releases the native tracker and refiner buffers
func (t *Target) Close() error {

	t.closeTracker()

	if t.refiner != nil {
		return t.refiner.Close()
	}

	return nil
}

// closeTracker releases the active visual tracker
func (t *Target) closeTracker() {

	if t.vt != nil {
		t.vt.Close()
		t.vt = nil
		t.alg = ""
	}
}
