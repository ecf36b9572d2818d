package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ConstantVelocity is a planar constant-velocity motion model.
// Unmodelled acceleration is treated as white noise with per-axis variance.
type ConstantVelocity struct {
	// NoiseAx is acceleration noise variance along x axis
	NoiseAx float64
	// NoiseAy is acceleration noise variance along y axis
	NoiseAy float64
}

// NewConstantVelocity creates new constant velocity model and returns it.
// It returns error if either of the acceleration noise variances is negative.
func NewConstantVelocity(noiseAx, noiseAy float64) (*ConstantVelocity, error) {
	if noiseAx < 0 || noiseAy < 0 {
		return nil, fmt.Errorf("invalid acceleration noise: [%v, %v]", noiseAx, noiseAy)
	}

	return &ConstantVelocity{NoiseAx: noiseAx, NoiseAy: noiseAy}, nil
}

// StateMatrix returns state transition matrix for elapsed time dt:
// positions advance by velocity times dt, velocities stay unchanged.
func (c *ConstantVelocity) StateMatrix(dt float64) *mat.Dense {
	return mat.NewDense(StateDim, StateDim, []float64{
		1, 0, dt, 0,
		0, 1, 0, dt,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
}

// ProcessCov returns process noise covariance for elapsed time dt.
// It must be recomputed for every dt.
func (c *ConstantVelocity) ProcessCov(dt float64) *mat.SymDense {
	dt2 := dt * dt
	dt3 := dt2 * dt
	dt4 := dt3 * dt

	ax, ay := c.NoiseAx, c.NoiseAy

	return mat.NewSymDense(StateDim, []float64{
		dt4 / 4 * ax, 0, dt3 / 2 * ax, 0,
		0, dt4 / 4 * ay, 0, dt3 / 2 * ay,
		dt3 / 2 * ax, 0, dt2 * ax, 0,
		0, dt3 / 2 * ay, 0, dt2 * ay,
	})
}

// Propagate propagates state x by dt seconds.
// It returns error if x has invalid dimension.
func (c *ConstantVelocity) Propagate(x mat.Vector, dt float64) (mat.Vector, error) {
	if x.Len() != StateDim {
		return nil, fmt.Errorf("%w: state %d != %d", ErrInvalidDim, x.Len(), StateDim)
	}

	out := mat.NewVecDense(StateDim, nil)
	out.MulVec(c.StateMatrix(dt), x)

	return out, nil
}
