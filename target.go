package bondtrack

import (
	"fmt"
	"image"
	"time"
)

// TargetKind identifies one of the physical targets watched on the bonder
type TargetKind int

const (
	// Tip is the bonder capillary tip
	Tip TargetKind = iota
	// Reel is the gold wire reel
	Reel
)

// NumTargets is the number of TargetKinds, the set is fixed
const NumTargets = 2

// TargetKinds lists every TargetKind in index order
var TargetKinds = [NumTargets]TargetKind{Tip, Reel}

// String returns the display name of the target
func (k TargetKind) String() string {
	switch k {
	case Tip:
		return "tip"
	case Reel:
		return "reel"
	default:
		return "unknown"
	}
}

// MarshalText encodes the target by name
func (k TargetKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a target name
func (k *TargetKind) UnmarshalText(text []byte) error {

	for _, kind := range TargetKinds {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}

	return fmt.Errorf("bondtrack: unknown target %q", text)
}

// Valid reports if k is one of the known TargetKinds
func (k TargetKind) Valid() bool {
	return k >= 0 && int(k) < NumTargets
}

// Detection is a single located target from the detector in source frame
// pixel coordinates.  It is immutable once published.
type Detection struct {
	// Box is the bounding box in source frame coordinates
	Box image.Rectangle
	// Confidence score of the detection in the range [0,1]
	Confidence float32
	// Timestamp of when the inference producing the detection completed
	Timestamp time.Time
}

// DetectionSet holds the detection, or none, for every TargetKind produced
// by a single inference
type DetectionSet struct {
	// Seq identifies the inference that produced the set.  It increases
	// monotonically, a zero Seq means no inference has completed yet
	Seq uint64
	// items indexed by TargetKind, nil means no detection
	items [NumTargets]*Detection
}

// NewDetectionSet returns an empty set tagged with the given sequence number
func NewDetectionSet(seq uint64) DetectionSet {
	return DetectionSet{Seq: seq}
}

// Get returns the detection for the given target, false if there is none
func (s DetectionSet) Get(kind TargetKind) (Detection, bool) {

	if !kind.Valid() || s.items[kind] == nil {
		return Detection{}, false
	}

	return *s.items[kind], true
}

// Set stores a detection for the given target
func (s *DetectionSet) Set(kind TargetKind, det Detection) {

	if !kind.Valid() {
		return
	}

	d := det
	s.items[kind] = &d
}

// Empty reports if no target was detected
func (s DetectionSet) Empty() bool {

	for _, d := range s.items {
		if d != nil {
			return false
		}
	}

	return true
}
