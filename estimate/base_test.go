package estimate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewBaseWithCov(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 1.0})
	cov := mat.NewSymDense(2, []float64{1.0, 0.0, 0.0, 1.0})

	b, err := NewBaseWithCov(state, cov)
	assert.NotNil(b)
	assert.NoError(err)

	b, err = NewBaseWithCov(nil, cov)
	assert.Nil(b)
	assert.Error(err)

	b, err = NewBaseWithCov(state, mat.NewSymDense(1, []float64{1.0}))
	assert.Nil(b)
	assert.Error(err)
}

func TestValCov(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, []float64{1.0, 2.0, 2.0, 4.0})

	b, err := NewBaseWithCov(state, cov)
	assert.NotNil(b)
	assert.NoError(err)

	v := b.Val()
	for i := 0; i < state.Len(); i++ {
		assert.Equal(state.AtVec(i), v.AtVec(i))
	}

	// returned value is a copy
	v.(*mat.VecDense).SetVec(0, 100.0)
	assert.Equal(1.0, b.Val().AtVec(0))

	c := b.Cov()
	r, _ := c.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			assert.Equal(cov.At(i, j), c.At(i, j))
		}
	}
}

func TestRMSE(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRMSE(0)
	assert.Nil(r)
	assert.Error(err)

	r, err = NewRMSE(2)
	assert.NotNil(r)
	assert.NoError(err)

	assert.Equal([]float64{0, 0}, r.Value())

	truth := mat.NewVecDense(2, []float64{0, 0})
	assert.NoError(r.Add(mat.NewVecDense(2, []float64{1, 2}), truth))
	assert.NoError(r.Add(mat.NewVecDense(2, []float64{-1, 0}), truth))
	assert.Equal(2, r.Count())

	rmse := r.Value()
	assert.InDelta(1.0, rmse[0], 1e-12)
	assert.InDelta(math.Sqrt2, rmse[1], 1e-12)

	err = r.Add(mat.NewVecDense(3, nil), truth)
	assert.Error(err)
	assert.Equal(2, r.Count())
}
