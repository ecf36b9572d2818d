package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LaserDim is the length of laser measurement vector (px, py).
const LaserDim = 2

// Laser is a linear observer of Cartesian position.
type Laser struct {
	// h is observation matrix selecting position from the state
	h *mat.Dense
}

// NewLaser creates new laser observer and returns it.
func NewLaser() *Laser {
	h := mat.NewDense(LaserDim, StateDim, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})

	return &Laser{h: h}
}

// Observe returns laser output H*x for state x.
// It returns error if x has invalid dimension.
func (l *Laser) Observe(x mat.Vector) (mat.Vector, error) {
	if x.Len() != StateDim {
		return nil, fmt.Errorf("%w: state %d != %d", ErrInvalidDim, x.Len(), StateDim)
	}

	y := mat.NewVecDense(LaserDim, nil)
	y.MulVec(l.h, x)

	return y, nil
}

// Residual returns z - y.
func (l *Laser) Residual(z, y mat.Vector) (*mat.VecDense, error) {
	if z.Len() != LaserDim || y.Len() != LaserDim {
		return nil, fmt.Errorf("%w: laser residual [%d, %d]", ErrInvalidDim, z.Len(), y.Len())
	}

	res := mat.NewVecDense(LaserDim, nil)
	res.SubVec(z, y)

	return res, nil
}

// Jacobian returns laser observation matrix: the laser model is linear so it does not depend on x.
func (l *Laser) Jacobian(x mat.Vector) (*mat.Dense, error) {
	return l.OutputMatrix(), nil
}

// OutputMatrix returns laser observation matrix
func (l *Laser) OutputMatrix() *mat.Dense {
	return mat.DenseCopyOf(l.h)
}

// Dim returns laser output dimension
func (l *Laser) Dim() int {
	return LaserDim
}
