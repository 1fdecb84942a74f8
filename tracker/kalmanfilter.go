package tracker

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// number of state variables, cx, cy, w, h and their velocities
	stateDim = 8
	// number of measured variables, cx, cy, w, h
	measureDim = 4
	// minimum width and height in pixels of any produced box
	minBoxSize = 1.0
)

// KalmanParams are the tuning values of the KalmanFilter
type KalmanParams struct {
	// Dt is the time step between frames in seconds
	Dt float64
	// Q is the process noise on position and size, velocities use 10*Q
	Q float64
	// R is the measurement noise
	R float64
}

// DefaultKalmanParams returns the tuning used for a 30 fps camera
func DefaultKalmanParams() KalmanParams {
	return KalmanParams{
		Dt: 1.0 / 30,
		Q:  1e-2,
		R:  1e-1,
	}
}

// KalmanFilter is a constant velocity filter over the box state
// [cx, cy, w, h, vx, vy, vw, vh] measured by [cx, cy, w, h]
type KalmanFilter struct {
	params     KalmanParams
	motionMat  *mat.Dense
	updateMat  *mat.Dense
	processCov *mat.Dense
	measureCov *mat.SymDense

	mean        *mat.VecDense
	cov         *mat.Dense
	initialized bool
	// lastGood is the last finite [cx, cy, w, h] used to recover from a
	// numerical failure
	lastGood [measureDim]float64
}

// NewKalmanFilter returns an uninitialized KalmanFilter
func NewKalmanFilter(params KalmanParams) *KalmanFilter {

	// create identity matrix for motionMat with dt coupling position to
	// velocity
	motionMat := mat.NewDense(stateDim, stateDim, nil)

	for i := 0; i < stateDim; i++ {
		motionMat.Set(i, i, 1.0)
	}

	for i := 0; i < measureDim; i++ {
		motionMat.Set(i, measureDim+i, params.Dt)
	}

	// create updateMat as a 4x8 matrix with first 4 diagonal elements set to 1
	updateMat := mat.NewDense(measureDim, stateDim, nil)

	for i := 0; i < measureDim; i++ {
		updateMat.Set(i, i, 1.0)
	}

	processCov := mat.NewDense(stateDim, stateDim, nil)

	for i := 0; i < stateDim; i++ {
		if i < measureDim {
			processCov.Set(i, i, params.Q)
		} else {
			processCov.Set(i, i, 10*params.Q)
		}
	}

	measureCov := mat.NewSymDense(measureDim, nil)

	for i := 0; i < measureDim; i++ {
		measureCov.SetSym(i, i, params.R)
	}

	return &KalmanFilter{
		params:     params,
		motionMat:  motionMat,
		updateMat:  updateMat,
		processCov: processCov,
		measureCov: measureCov,
		mean:       mat.NewVecDense(stateDim, nil),
		cov:        mat.NewDense(stateDim, stateDim, nil),
	}
}

// Initialized reports if the filter has been seeded with a box
func (kf *KalmanFilter) Initialized() bool {
	return kf.initialized
}

// Reset discards all state
func (kf *KalmanFilter) Reset() {
	kf.mean.Zero()
	kf.cov.Zero()
	kf.initialized = false
}

// Initiate seeds the filter from a single box with zero velocity and an
// identity covariance, discarding any previous history
func (kf *KalmanFilter) Initiate(box image.Rectangle) {
	kf.seed(measurement(box))
}

// seed sets the position part of the state and zeros the rest
func (kf *KalmanFilter) seed(z [measureDim]float64) {

	z[2] = math.Max(z[2], minBoxSize)
	z[3] = math.Max(z[3], minBoxSize)

	kf.mean.Zero()

	for i := 0; i < measureDim; i++ {
		kf.mean.SetVec(i, z[i])
	}

	kf.cov.Zero()

	for i := 0; i < stateDim; i++ {
		kf.cov.Set(i, i, 1.0)
	}

	kf.lastGood = z
	kf.initialized = true
}

// Predict advances the state one time step and returns the predicted box.
// It returns false if the filter was never initialized.
func (kf *KalmanFilter) Predict() (image.Rectangle, bool) {

	if !kf.initialized {
		return image.Rectangle{}, false
	}

	// x = F x
	var next mat.VecDense
	next.MulVec(kf.motionMat, kf.mean)
	kf.mean.CopyVec(&next)

	// P = F P F' + Q
	var fp, cov mat.Dense
	fp.Mul(kf.motionMat, kf.cov)
	cov.Mul(&fp, kf.motionMat.T())
	cov.Add(&cov, kf.processCov)
	kf.cov.Copy(&cov)

	kf.guard()

	return kf.Box(), true
}

// Update corrects the state with a measured box and returns the smoothed
// box.  An uninitialized filter is seeded from the measurement instead.
func (kf *KalmanFilter) Update(box image.Rectangle) image.Rectangle {

	if !kf.initialized {
		kf.Initiate(box)
		return kf.Box()
	}

	z := measurement(box)

	if err := kf.correct(z); err != nil {
		// covariance can not be factorized, trust the measurement
		kf.seed(z)
		return kf.Box()
	}

	kf.guard()

	return kf.Box()
}

// correct applies the linear Kalman correction for measurement z
func (kf *KalmanFilter) correct(z [measureDim]float64) error {

	// projected covariance S = H P H' + R
	hp := mat.NewDense(measureDim, stateDim, nil)
	hp.Mul(kf.updateMat, kf.cov)

	var hph mat.Dense
	hph.Mul(hp, kf.updateMat.T())

	projectedCov := mat.NewSymDense(measureDim, nil)

	for i := 0; i < measureDim; i++ {
		for j := i; j < measureDim; j++ {
			projectedCov.SetSym(i, j, (hph.At(i, j)+hph.At(j, i))/2)
		}
	}

	projectedCov.AddSym(projectedCov, kf.measureCov)

	// perform Cholesky factorization of the projected covariance matrix
	chol := mat.Cholesky{}

	if ok := chol.Factorize(projectedCov); !ok {
		return errFactorize
	}

	// K' = S^-1 H P since P is symmetric
	var gainT mat.Dense

	if err := chol.SolveTo(&gainT, hp); err != nil {
		return err
	}

	// compute the innovation (measurement residual)
	innovation := mat.NewVecDense(measureDim, nil)

	for i := 0; i < measureDim; i++ {
		innovation.SetVec(i, z[i]-kf.mean.AtVec(i))
	}

	// x = x + K y
	var delta mat.VecDense
	delta.MulVec(gainT.T(), innovation)
	kf.mean.AddVec(kf.mean, &delta)

	// P = P - K S K'
	var ks mat.Dense
	ks.Mul(gainT.T(), projectedCov)

	var ksk mat.Dense
	ksk.Mul(&ks, &gainT)

	kf.cov.Sub(kf.cov, &ksk)

	// re-symmetrise to stop rounding errors accumulating
	var sym mat.Dense
	sym.Add(kf.cov, kf.cov.T())
	sym.Scale(0.5, &sym)
	kf.cov.Copy(&sym)

	return nil
}

// guard checks the state for NaN or infinite values and re-seeds from the
// last finite box when any are found.  Sizes are floored at minBoxSize.
func (kf *KalmanFilter) guard() {

	if !kf.isFinite() {
		kf.seed(kf.lastGood)
		return
	}

	kf.mean.SetVec(2, math.Max(kf.mean.AtVec(2), minBoxSize))
	kf.mean.SetVec(3, math.Max(kf.mean.AtVec(3), minBoxSize))

	for i := 0; i < measureDim; i++ {
		kf.lastGood[i] = kf.mean.AtVec(i)
	}
}

// isFinite reports if the state and covariance diagonal hold finite values
func (kf *KalmanFilter) isFinite() bool {

	for i := 0; i < stateDim; i++ {
		if v := kf.mean.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}

		if v := kf.cov.At(i, i); math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// State returns a copy of the state vector
func (kf *KalmanFilter) State() []float64 {

	state := make([]float64, stateDim)

	for i := range state {
		state[i] = kf.mean.AtVec(i)
	}

	return state
}

// Box returns the current state as a box.  Width and height are at least
// one pixel.
func (kf *KalmanFilter) Box() image.Rectangle {

	if !kf.initialized {
		return image.Rectangle{}
	}

	return stateBox(kf.mean.AtVec(0), kf.mean.AtVec(1),
		kf.mean.AtVec(2), kf.mean.AtVec(3))
}

// measurement converts a box to [cx, cy, w, h]
func measurement(box image.Rectangle) [measureDim]float64 {

	box = box.Canon()

	return [measureDim]float64{
		float64(box.Min.X+box.Max.X) / 2,
		float64(box.Min.Y+box.Max.Y) / 2,
		float64(box.Dx()),
		float64(box.Dy()),
	}
}

// stateBox converts center and size to a box of at least minBoxSize
func stateBox(cx, cy, w, h float64) image.Rectangle {

	w = math.Max(w, minBoxSize)
	h = math.Max(h, minBoxSize)

	x1 := int(math.Round(cx - w/2))
	y1 := int(math.Round(cy - h/2))
	x2 := int(math.Round(cx + w/2))
	y2 := int(math.Round(cy + h/2))

	if x2 <= x1 {
		x2 = x1 + 1
	}

	if y2 <= y1 {
		y2 = y1 + 1
	}

	return image.Rect(x1, y1, x2, y2)
}
