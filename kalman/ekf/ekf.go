package ekf

import (
	"errors"
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/estimate"
	"github.com/milosgajdos/go-fusion/kalman"
	"github.com/milosgajdos/go-fusion/matrix"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingularCov is returned when innovation covariance can not be inverted.
	ErrSingularCov = errors.New("singular innovation covariance")
	// ErrInvalidMeasurement is returned when measurement does not match the output model.
	ErrInvalidMeasurement = errors.New("invalid measurement")
	// ErrNoOutputModel is returned when update is requested before output model was set.
	ErrNoOutputModel = errors.New("output model not set")
)

var _ kalman.Kalman = (*EKF)(nil)

// EKF is Extended Kalman Filter
type EKF struct {
	// x is filter state
	x *mat.VecDense
	// p is the EKF covariance matrix
	p *mat.SymDense
	// f is EKF propagation matrix
	f *mat.Dense
	// q is process noise covariance
	q *mat.SymDense
	// h is EKF observation matrix: either linear output matrix or Jacobian
	h *mat.Dense
	// r is measurement noise covariance
	r *mat.SymDense
	// inn is innovation vector
	inn *mat.VecDense
	// k is Kalman gain
	k *mat.Dense
}

// New creates new EKF and returns it.
// The filter state and covariance are set from the initial condition init.
// Propagation matrix is initialized to identity and process noise to zero;
// output model must be set with SetOutput before the first update.
// It returns error if init dimensions are invalid.
func New(init filter.InitCond) (*EKF, error) {
	if init == nil {
		return nil, fmt.Errorf("invalid initial condition: %v", init)
	}

	nx := init.State().Len()
	if nx <= 0 {
		return nil, fmt.Errorf("invalid state dimension: %d", nx)
	}

	if n := init.Cov().SymmetricDim(); n != nx {
		return nil, fmt.Errorf("invalid covariance dimension: %d != %d", n, nx)
	}

	x := mat.VecDenseCopyOf(init.State())

	// initialize covariance matrix to initial condition covariance
	p := mat.NewSymDense(nx, nil)
	p.CopySym(init.Cov())

	f, err := matrix.Eye(nx)
	if err != nil {
		return nil, err
	}

	return &EKF{
		x: x,
		p: p,
		f: f,
		q: mat.NewSymDense(nx, nil),
	}, nil
}

// SetTransition sets EKF propagation matrix to f.
// It returns error if f is not nx x nx matrix.
func (k *EKF) SetTransition(f mat.Matrix) error {
	nx := k.x.Len()
	if f == nil {
		return fmt.Errorf("invalid propagation matrix: %v", f)
	}

	if rows, cols := f.Dims(); rows != nx || cols != nx {
		return fmt.Errorf("invalid propagation matrix dimensions: [%d x %d]", rows, cols)
	}

	k.f.Copy(f)

	return nil
}

// SetProcessCov sets process noise covariance to q.
// It returns error if q dimension does not match the state dimension.
func (k *EKF) SetProcessCov(q mat.Symmetric) error {
	if q == nil {
		return fmt.Errorf("invalid process noise covariance: %v", q)
	}

	if q.SymmetricDim() != k.x.Len() {
		return fmt.Errorf("invalid process noise dimension: %d", q.SymmetricDim())
	}

	k.q.CopySym(q)

	return nil
}

// SetOutput sets observation matrix h and measurement noise covariance r.
// h is either a linear output matrix or a Jacobian of nonlinear observation.
// It returns error if h is not ny x nx matrix or r dimension is not ny.
func (k *EKF) SetOutput(h mat.Matrix, r mat.Symmetric) error {
	if h == nil || r == nil {
		return fmt.Errorf("invalid output model: h=%v r=%v", h, r)
	}

	ny, cols := h.Dims()
	if ny <= 0 || cols != k.x.Len() {
		return fmt.Errorf("invalid observation matrix dimensions: [%d x %d]", ny, cols)
	}

	if r.SymmetricDim() != ny {
		return fmt.Errorf("invalid output noise dimension: %d", r.SymmetricDim())
	}

	k.h = mat.DenseCopyOf(h)

	k.r = mat.NewSymDense(ny, nil)
	k.r.CopySym(r)

	return nil
}

// Predict propagates EKF state and covariance to the next step and returns the predicted estimate:
//
//	x = F*x
//	P = F*P*F' + Q
func (k *EKF) Predict() (filter.Estimate, error) {
	nx := k.x.Len()

	xNext := mat.NewVecDense(nx, nil)
	xNext.MulVec(k.f, k.x)

	cov := mat.NewDense(nx, nx, nil)
	cov.Product(k.f, k.p, k.f.T())
	cov.Add(cov, k.q)

	if !matrix.IsFinite(xNext) || !matrix.IsFinite(cov) {
		return nil, fmt.Errorf("state propagation produced non-finite values")
	}

	k.x.CopyVec(xNext)
	if err := matrix.Symmetrize(k.p, cov); err != nil {
		return nil, err
	}

	return estimate.NewBaseWithCov(k.x, k.p)
}

// Update corrects EKF state using measurement z of a linear observation model
// and returns corrected estimate. Innovation is calculated as z - H*x.
// It returns error if z has invalid dimension or the innovation covariance is singular.
// Filter state is left unchanged if Update fails.
func (k *EKF) Update(z mat.Vector) (filter.Estimate, error) {
	if k.h == nil {
		return nil, ErrNoOutputModel
	}

	ny, _ := k.h.Dims()
	if z == nil || z.Len() != ny {
		return nil, fmt.Errorf("%w: expected %d values", ErrInvalidMeasurement, ny)
	}

	y := mat.NewVecDense(ny, nil)
	y.MulVec(k.h, k.x)

	inn := mat.NewVecDense(ny, nil)
	inn.SubVec(z, y)

	return k.correct(inn)
}

// UpdateNonlinear corrects EKF state using measurement z of a nonlinear observer o
// and returns corrected estimate. Innovation is calculated by o as z - h(x);
// observation matrix must already hold Jacobian of o evaluated at the current state.
// It returns error if z has invalid dimension, o fails to observe the state
// or the innovation covariance is singular. Filter state is left unchanged if UpdateNonlinear fails.
func (k *EKF) UpdateNonlinear(z mat.Vector, o filter.Observer) (filter.Estimate, error) {
	if k.h == nil {
		return nil, ErrNoOutputModel
	}

	if o == nil {
		return nil, fmt.Errorf("invalid observer: %v", o)
	}

	ny, _ := k.h.Dims()
	if o.Dim() != ny {
		return nil, fmt.Errorf("observer dimension %d does not match observation matrix: %d", o.Dim(), ny)
	}

	if z == nil || z.Len() != ny {
		return nil, fmt.Errorf("%w: expected %d values", ErrInvalidMeasurement, ny)
	}

	// observe system output in the current step
	y, err := o.Observe(k.x)
	if err != nil {
		return nil, fmt.Errorf("failed to observe system output: %w", err)
	}

	inn, err := o.Residual(z, y)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate innovation: %w", err)
	}

	return k.correct(inn)
}

// correct applies innovation inn to the EKF state and covariance.
func (k *EKF) correct(inn *mat.VecDense) (filter.Estimate, error) {
	nx := k.x.Len()
	ny, _ := k.h.Dims()

	pxy := mat.NewDense(nx, ny, nil)
	pyy := mat.NewDense(ny, ny, nil)

	// P*H'
	pxy.Mul(k.p, k.h.T())

	// Note: pxy = P * H' so we reuse the result here
	// H*P*H' + R
	pyy.Mul(k.h, pxy)
	pyy.Add(pyy, k.r)

	// calculate Kalman gain
	pyyInv := &mat.Dense{}
	if err := pyyInv.Inverse(pyy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularCov, err)
	}

	if !matrix.IsFinite(pyyInv) {
		return nil, fmt.Errorf("%w: non-finite inverse", ErrSingularCov)
	}

	gain := mat.NewDense(nx, ny, nil)
	gain.Mul(pxy, pyyInv)

	// update state x
	corr := mat.NewVecDense(nx, nil)
	corr.MulVec(gain, inn)
	x := mat.NewVecDense(nx, nil)
	x.AddVec(k.x, corr)

	// Joseph form update: (I - K*H)*P*(I - K*H)' + K*R*K'
	eye, err := matrix.Eye(nx)
	if err != nil {
		return nil, err
	}
	a := &mat.Dense{}
	// K*H
	a.Mul(gain, k.h)
	// eye - K*H
	a.Sub(eye, a)

	apa := &mat.Dense{}
	apa.Product(a, k.p, a.T())

	// K*R*K'
	krk := &mat.Dense{}
	krk.Product(gain, k.r, gain.T())

	pCorr := &mat.Dense{}
	pCorr.Add(apa, krk)

	if !matrix.IsFinite(x) || !matrix.IsFinite(pCorr) {
		return nil, fmt.Errorf("%w: correction produced non-finite values", ErrSingularCov)
	}

	// update EKF innovation vector, gain, state and covariance
	k.inn = inn
	k.k = gain
	k.x.CopyVec(x)
	if err := matrix.Symmetrize(k.p, pCorr); err != nil {
		return nil, err
	}

	return estimate.NewBaseWithCov(k.x, k.p)
}

// State returns EKF state
func (k *EKF) State() mat.Vector {
	return mat.VecDenseCopyOf(k.x)
}

// SetState sets EKF state to x.
// It returns error if x is nil or its dimension is not the same as EKF state dimension.
func (k *EKF) SetState(x mat.Vector) error {
	if x == nil {
		return fmt.Errorf("invalid state: %v", x)
	}

	if x.Len() != k.x.Len() {
		return fmt.Errorf("invalid state dimension: %d", x.Len())
	}

	k.x.CopyVec(x)

	return nil
}

// Estimate returns current EKF estimate
func (k *EKF) Estimate() (filter.Estimate, error) {
	return estimate.NewBaseWithCov(k.x, k.p)
}

// Cov returns EKF covariance
func (k *EKF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}

// SetCov sets EKF covariance matrix to cov.
// It returns error if either cov is nil or its dimensions are not the same as EKF covariance dimensions.
func (k *EKF) SetCov(cov mat.Symmetric) error {
	if cov == nil {
		return fmt.Errorf("invalid covariance matrix: %v", cov)
	}

	if cov.SymmetricDim() != k.p.SymmetricDim() {
		return fmt.Errorf("invalid covariance matrix dims: [%d x %d]", cov.SymmetricDim(), cov.SymmetricDim())
	}

	k.p.CopySym(cov)

	return nil
}

// Gain returns Kalman gain of the last successful update.
// It returns empty matrix if no update has happened yet.
func (k *EKF) Gain() mat.Matrix {
	gain := &mat.Dense{}
	if k.k != nil {
		gain.CloneFrom(k.k)
	}

	return gain
}

// Innovation returns innovation vector of the last successful update.
// It returns empty vector if no update has happened yet.
func (k *EKF) Innovation() mat.Vector {
	inn := &mat.VecDense{}
	if k.inn != nil {
		inn.CloneFromVec(k.inn)
	}

	return inn
}
