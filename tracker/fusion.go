package tracker

import (
	"github.com/wirebond/bondtrack"
	"gocv.io/x/gocv"
)

// Snapshot is the per frame output of the Manager, a read only copy of
// every target state
type Snapshot struct {
	// Frame counts the frames stepped by the Manager
	Frame uint64 `json:"frame"`
	// Seq of the last detection set ingested
	Seq uint64 `json:"seq"`
	// Targets indexed by TargetKind
	Targets [bondtrack.NumTargets]State `json:"targets"`
}

// Get returns the state of the given target
func (s Snapshot) Get(kind bondtrack.TargetKind) State {

	if !kind.Valid() {
		return State{Kind: kind}
	}

	return s.Targets[kind]
}

// AnyOK reports if the visual tracker located any target this frame
func (s Snapshot) AnyOK() bool {

	for _, st := range s.Targets {
		if st.OK {
			return true
		}
	}

	return false
}

// ManagerOptions configure a Manager
type ManagerOptions struct {
	// Targets are the options for each target indexed by TargetKind
	Targets [bondtrack.NumTargets]TargetOptions
	// TrailSize is the number of positions kept per target, zero disables
	// the trail
	TrailSize int
}

// DefaultManagerOptions returns the default options for every target
func DefaultManagerOptions() ManagerOptions {

	var opts ManagerOptions

	for _, kind := range bondtrack.TargetKinds {
		opts.Targets[kind] = DefaultTargetOptions(kind)
	}

	opts.TrailSize = 30

	return opts
}

// Manager owns one Target per TargetKind and fuses detections from the
// Detector with per frame tracking.  It must only be used from the
// goroutine running the frame loop.
type Manager struct {
	targets [bondtrack.NumTargets]*Target
	trail   *Trail
	lastSeq uint64
	frames  uint64
}

// NewManager returns a Manager with every target uninitialized
func NewManager(opts ManagerOptions) *Manager {

	m := &Manager{
		trail: NewTrail(opts.TrailSize),
	}

	for _, kind := range bondtrack.TargetKinds {
		m.targets[kind] = NewTarget(kind, opts.Targets[kind])
	}

	return m
}

// Ingest re-seeds every target that has a detection in set
func (m *Manager) Ingest(frame gocv.Mat, set bondtrack.DetectionSet) {

	for _, kind := range bondtrack.TargetKinds {
		if det, ok := set.Get(kind); ok {
			m.targets[kind].InitFromDetection(frame, det.Box)
		}
	}
}

// Step advances every target onto frame and returns their states
func (m *Manager) Step(frame gocv.Mat) Snapshot {

	m.frames++

	snap := Snapshot{
		Frame: m.frames,
		Seq:   m.lastSeq,
	}

	for _, kind := range bondtrack.TargetKinds {
		t := m.targets[kind]
		t.Advance(frame)

		st := t.State()
		snap.Targets[kind] = st

		if st.OK {
			m.trail.Add(kind, st.Box)
		}
	}

	return snap
}

// Update ingests set if it is newer than the last one ingested and then
// steps every target.  Detections are always applied before the step of the
// same frame.
func (m *Manager) Update(frame gocv.Mat, set bondtrack.DetectionSet) Snapshot {

	if set.Seq > m.lastSeq {
		m.Ingest(frame, set)
		m.lastSeq = set.Seq
	}

	return m.Step(frame)
}

// SkipTo marks every detection set up to seq as already applied, used when
// a Manager starts on a Detector that still holds an older session's set
func (m *Manager) SkipTo(seq uint64) {
	if seq > m.lastSeq {
		m.lastSeq = seq
	}
}

// Target returns the target of the given kind
func (m *Manager) Target(kind bondtrack.TargetKind) *Target {
	return m.targets[kind]
}

// Trail returns the position history of the targets
func (m *Manager) Trail() *Trail {
	return m.trail
}

// Close releases the native resources of every target
func (m *Manager) Close() error {

	var firstErr error

	for _, t := range m.targets {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
