package model

import (
	filter "github.com/milosgajdos/go-fusion"
	"gonum.org/v1/gonum/mat"
)

// StateDim is the length of the planar constant-velocity state vector (px, py, vx, vy).
const StateDim = 4

var (
	_ filter.InitCond   = (*InitCond)(nil)
	_ filter.Propagator = (*ConstantVelocity)(nil)
	_ filter.Observer   = (*Laser)(nil)
	_ filter.Linearizer = (*Laser)(nil)
	_ filter.Observer   = (*Radar)(nil)
	_ filter.Linearizer = (*Radar)(nil)
)

// InitCond implements filter.InitCond
type InitCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates new InitCond and returns it
func NewInitCond(state mat.Vector, cov mat.Symmetric) *InitCond {
	s := &mat.VecDense{}
	s.CloneFromVec(state)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &InitCond{
		state: s,
		cov:   c,
	}
}

// State returns initial state
func (c *InitCond) State() mat.Vector {
	state := mat.NewVecDense(c.state.Len(), nil)
	state.CopyVec(c.state)

	return state
}

// Cov returns initial covariance
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.SymmetricDim(), nil)
	cov.CopySym(c.cov)

	return cov
}

// DiagCov returns a StateDim x StateDim diagonal covariance with position
// variance posVar and velocity variance velVar.
func DiagCov(posVar, velVar float64) *mat.SymDense {
	return mat.NewSymDense(StateDim, []float64{
		posVar, 0, 0, 0,
		0, posVar, 0, 0,
		0, 0, velVar, 0,
		0, 0, 0, velVar,
	})
}
