package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestLaserObserve(t *testing.T) {
	assert := assert.New(t)

	l := NewLaser()
	assert.Equal(LaserDim, l.Dim())

	y, err := l.Observe(x)
	assert.NotNil(y)
	assert.NoError(err)
	assert.Equal([]float64{1.0, 2.0}, mat.Col(nil, 0, y))

	y, err = l.Observe(mat.NewVecDense(2, nil))
	assert.Nil(y)
	assert.ErrorIs(err, ErrInvalidDim)
}

func TestLaserResidual(t *testing.T) {
	assert := assert.New(t)

	l := NewLaser()

	z := mat.NewVecDense(LaserDim, []float64{1.5, 1.0})
	y := mat.NewVecDense(LaserDim, []float64{1.0, 2.0})

	res, err := l.Residual(z, y)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0.5, -1.0}, res.RawVector().Data, 1e-12)

	res, err = l.Residual(mat.NewVecDense(3, nil), y)
	assert.Nil(res)
	assert.Error(err)
}

func TestLaserJacobian(t *testing.T) {
	assert := assert.New(t)

	l := NewLaser()

	h, err := l.Jacobian(x)
	assert.NoError(err)
	assert.True(mat.Equal(l.OutputMatrix(), h))

	// linear observer Jacobian matches its finite difference approximation
	num, err := NumericJacobian(l, x)
	assert.NoError(err)
	assert.True(mat.EqualApprox(h, num, 1e-6))

	// returned matrix is a copy
	h.Set(0, 0, 10)
	assert.Equal(1.0, l.OutputMatrix().At(0, 0))
}
