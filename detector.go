package bondtrack

import (
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wirebond/bondtrack/internal/log"
	"github.com/wirebond/bondtrack/preprocess"
	"gocv.io/x/gocv"
)

// DetectorOptions configure the background detection worker
type DetectorOptions struct {
	// InputSize is the square model input size frames are letterboxed to
	InputSize int
	// PadColor is the letterbox padding colour
	PadColor color.RGBA
	// StopTimeout bounds how long Stop waits for the worker to exit
	StopTimeout time.Duration
}

// DefaultDetectorOptions returns the options used by the bonder model
func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{
		InputSize:   416,
		PadColor:    color.RGBA{R: 114, G: 114, B: 114, A: 255},
		StopTimeout: 2 * time.Second,
	}
}

// DetectorStats are counters describing the worker activity
type DetectorStats struct {
	// Submitted is the number of frames accepted for inference
	Submitted uint64
	// Dropped is the number of frames rejected because one was in flight
	Dropped uint64
	// Inferences is the number of completed model runs
	Inferences uint64
	// Failures is the number of model runs that returned an error
	Failures uint64
	// LastInference is the duration of the most recent model run
	LastInference time.Duration
}

// job is a letterboxed frame waiting for inference
type job struct {
	img  gocv.Mat
	meta preprocess.Meta
}

// Detector runs the Model on a background goroutine.  Frames are offered
// with Submit and at most one frame is in flight at any time, any frame
// offered while one is queued or being inferred is dropped.  The latest
// results are read with Poll without ever blocking the caller.
type Detector struct {
	model     Model
	resolver  *Resolver
	opts      DetectorOptions
	letterbox *preprocess.Letterbox

	// frames is the single slot hand off to the worker
	frames chan job
	// inFlight is set from Submit until the result of that frame is published
	inFlight atomic.Bool
	// latest published detections
	latest atomic.Pointer[DetectionSet]
	// seq of the last published set
	seq atomic.Uint64

	submitted  atomic.Uint64
	dropped    atomic.Uint64
	inferences atomic.Uint64
	failures   atomic.Uint64
	lastNanos  atomic.Int64

	// lifecycle
	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	now func() time.Time
}

// NewDetector returns a Detector for the given model.  Class ids of the
// model are mapped to targets with resolver.
func NewDetector(model Model, resolver *Resolver, opts DetectorOptions) *Detector {

	if opts.InputSize <= 0 {
		opts.InputSize = DefaultDetectorOptions().InputSize
	}

	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultDetectorOptions().StopTimeout
	}

	return &Detector{
		model:     model,
		resolver:  resolver,
		opts:      opts,
		letterbox: preprocess.NewLetterbox(opts.InputSize, opts.InputSize, opts.PadColor),
		frames:    make(chan job, 1),
		now:       time.Now,
	}
}

// Start launches the worker goroutine.  Calling Start on a running
// Detector does nothing.  ErrWorkerRunning is returned while the worker of a
// Stop that timed out is still inside an inference.
func (d *Detector) Start() error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}

	if d.done != nil {
		select {
		case <-d.done:
		default:
			return ErrWorkerRunning
		}
	}

	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.running = true

	go d.run(d.stop, d.done)

	log.Debug("detector started", "input", d.opts.InputSize)

	return nil
}

// Stop signals the worker to exit and waits up to StopTimeout for it.  An
// inference already running is not cancelled, if it outlasts the bound
// ErrStopTimeout is returned and the worker exits once it completes.
func (d *Detector) Stop() error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.running = false
	close(d.stop)

	select {
	case <-d.done:
	case <-time.After(d.opts.StopTimeout):
		log.Warn("detector worker did not stop in time", "timeout", d.opts.StopTimeout)
		return ErrStopTimeout
	}

	// release a frame that was queued but never picked up
	select {
	case j := <-d.frames:
		j.img.Close()
	default:
	}

	d.inFlight.Store(false)

	log.Debug("detector stopped", "stats", d.Stats())

	return nil
}

// Done returns a channel that is closed once the worker goroutine has
// exited.  It is already closed when the Detector was never started.
func (d *Detector) Done() <-chan struct{} {

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done == nil {
		done := make(chan struct{})
		close(done)
		return done
	}

	return d.done
}

// Close stops the worker and releases the letterbox buffers.  The Model is
// owned by the caller and is not closed.
func (d *Detector) Close() error {

	err := d.Stop()

	if err == nil {
		d.letterbox.Close()
	}

	return err
}

// Submit offers a frame for inference without blocking.  The frame is
// letterboxed on the calling goroutine and the caller keeps ownership of
// frame.  It returns false if the frame was dropped because another one is
// still in flight.
func (d *Detector) Submit(frame gocv.Mat) bool {

	if frame.Empty() {
		return false
	}

	if !d.inFlight.CompareAndSwap(false, true) {
		d.dropped.Add(1)
		return false
	}

	img := gocv.NewMat()
	meta := d.letterbox.Resize(frame, &img)

	select {
	case d.frames <- job{img: img, meta: meta}:
		d.submitted.Add(1)
		return true
	default:
		// slot is only ever filled while inFlight is held
		img.Close()
		d.inFlight.Store(false)
		d.dropped.Add(1)
		return false
	}
}

// Poll returns the most recently published detections.  Repeated calls
// return the same set, with the same Seq, until a newer inference completes.
// Before the first inference an empty set with a zero Seq is returned.
func (d *Detector) Poll() DetectionSet {

	if set := d.latest.Load(); set != nil {
		return *set
	}

	return DetectionSet{}
}

// Busy reports if a frame is currently queued or being inferred
func (d *Detector) Busy() bool {
	return d.inFlight.Load()
}

// Stats returns a snapshot of the worker counters
func (d *Detector) Stats() DetectorStats {
	return DetectorStats{
		Submitted:     d.submitted.Load(),
		Dropped:       d.dropped.Load(),
		Inferences:    d.inferences.Load(),
		Failures:      d.failures.Load(),
		LastInference: time.Duration(d.lastNanos.Load()),
	}
}

// run is the worker loop
func (d *Detector) run(stop <-chan struct{}, done chan<- struct{}) {

	defer close(done)

	for {
		select {
		case <-stop:
			return
		case j := <-d.frames:
			// a frame and stop can be ready together
			select {
			case <-stop:
				j.img.Close()
				d.inFlight.Store(false)
				return
			default:
			}

			d.process(j)
		}
	}
}

// process runs one inference and publishes the resulting set
func (d *Detector) process(j job) {

	// cleared last so a new frame is only accepted after publishing
	defer d.inFlight.Store(false)
	defer j.img.Close()

	start := d.now()
	results, err := d.model.Detect(j.img)
	d.lastNanos.Store(int64(d.now().Sub(start)))
	d.inferences.Add(1)

	set := NewDetectionSet(d.seq.Add(1))

	if err != nil {
		d.failures.Add(1)
		log.Warn("inference failed", "seq", set.Seq, "error", err)
		d.latest.Store(&set)
		return
	}

	ts := d.now()

	for _, res := range results {

		log.Debug("raw detection", "seq", set.Seq, "class", res.Class,
			"label", d.resolver.Label(res.Class), "conf", res.Probability,
			"box", res.Box)

		kind, ok := d.resolver.Resolve(res.Class)

		if !ok {
			log.Debug("ignoring class", "label", d.resolver.Label(res.Class))
			continue
		}

		// keep the highest confidence detection per target
		if cur, exists := set.Get(kind); exists && cur.Confidence >= res.Probability {
			continue
		}

		box := j.meta.ToSource(res.Box.Left, res.Box.Top, res.Box.Right, res.Box.Bottom)

		if box.Empty() {
			log.Debug("dropping degenerate box", "target", kind, "box", box)
			continue
		}

		set.Set(kind, Detection{
			Box:        box,
			Confidence: res.Probability,
			Timestamp:  ts,
		})
	}

	for _, kind := range TargetKinds {
		if det, ok := set.Get(kind); ok {
			log.Debug("detection", "seq", set.Seq, "target", kind,
				"box", det.Box, "conf", det.Confidence)
		}
	}

	d.latest.Store(&set)
}
