package tracker

import "errors"

var (
	// ErrUnknownAlgorithm is returned when no visual tracker is registered
	// under the requested name
	ErrUnknownAlgorithm = errors.New("tracker: unknown visual tracker algorithm")

	// ErrTrackerInit is returned when a visual tracker fails to initialize
	// on a box
	ErrTrackerInit = errors.New("tracker: visual tracker init failed")

	// ErrNoTracker is returned when every algorithm of a chain failed
	ErrNoTracker = errors.New("tracker: no visual tracker available")

	errFactorize = errors.New("tracker: failed to factorize projected covariance")
)
