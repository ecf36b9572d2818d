package filter

import "gonum.org/v1/gonum/mat"

// Filter is a dynamical system filter.
type Filter interface {
	// Predict estimates the next internal state of the system
	Predict() (Estimate, error)
	// Update updates the system state based on external measurement
	Update(mat.Vector) (Estimate, error)
}

// Propagator propagates internal state of the system to the next step
type Propagator interface {
	// Propagate propagates internal state x of the system by dt seconds
	Propagate(x mat.Vector, dt float64) (mat.Vector, error)
}

// Observer observes external state (output) of the system
type Observer interface {
	// Observe observes external state of the system given its internal state x
	Observe(x mat.Vector) (mat.Vector, error)
	// Residual returns the difference between measurement z and predicted output y
	Residual(z, y mat.Vector) (*mat.VecDense, error)
	// Dim returns output dimension
	Dim() int
}

// Linearizer linearizes system observation around a given state
type Linearizer interface {
	// Jacobian returns observation Jacobian matrix evaluated at x
	Jacobian(x mat.Vector) (*mat.Dense, error)
}

// InitCond is initial state condition of the filter
type InitCond interface {
	// State returns initial filter state
	State() mat.Vector
	// Cov returns initial state covariance
	Cov() mat.Symmetric
}

// Estimate is dynamical system filter estimate
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset() error
}
