package tracker

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/wirebond/bondtrack"
	"gocv.io/x/gocv"
)

// VisualTracker is a native appearance based single object tracker.
// gocv.Tracker satisfies it.
type VisualTracker interface {
	// Init starts tracking the object inside box on img
	Init(img gocv.Mat, box image.Rectangle) bool
	// Update locates the object on img, false if it was lost
	Update(img gocv.Mat) (image.Rectangle, bool)
	// Close releases the native tracker
	Close() error
}

// Algorithm names a VisualTracker implementation
type Algorithm string

const (
	CSRT Algorithm = "csrt"
	KCF  Algorithm = "kcf"
	MIL  Algorithm = "mil"
)

// Factory creates a VisualTracker for the named algorithm
type Factory func(alg Algorithm) (VisualTracker, error)

var (
	registryMu sync.RWMutex
	registry   = map[Algorithm]func() VisualTracker{
		MIL: func() VisualTracker { return gocv.NewTrackerMIL() },
	}
)

// Register makes a VisualTracker constructor available under the given name
func Register(alg Algorithm, create func() VisualTracker) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[alg] = create
}

// Algorithms returns the names of the registered trackers
func Algorithms() []Algorithm {
	registryMu.RLock()
	defer registryMu.RUnlock()

	algs := make([]Algorithm, 0, len(registry))

	for alg := range registry {
		algs = append(algs, alg)
	}

	sort.Slice(algs, func(i, j int) bool { return algs[i] < algs[j] })

	return algs
}

// NewVisualTracker is the default Factory using the registered constructors
func NewVisualTracker(alg Algorithm) (VisualTracker, error) {

	registryMu.RLock()
	create, ok := registry[alg]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}

	return create(), nil
}

// DefaultChain returns the preferred algorithms for a target in order of
// preference.  MIL is the fallback available in every OpenCV build.
func DefaultChain(kind bondtrack.TargetKind) []Algorithm {

	switch kind {
	case bondtrack.Tip:
		return []Algorithm{CSRT, MIL}
	default:
		return []Algorithm{KCF, MIL}
	}
}

// createTracker walks the chain and returns the first tracker that can be
// created and initialized on box
func createTracker(factory Factory, chain []Algorithm, frame gocv.Mat,
	box image.Rectangle) (VisualTracker, Algorithm, error) {

	var errs []error

	for _, alg := range chain {

		vt, err := factory(alg)

		if err != nil {
			errs = append(errs, err)
			continue
		}

		if !vt.Init(frame, box) {
			vt.Close()
			errs = append(errs, fmt.Errorf("%w: %s", ErrTrackerInit, alg))
			continue
		}

		return vt, alg, nil
	}

	return nil, "", fmt.Errorf("%w: %w", ErrNoTracker, errors.Join(errs...))
}
