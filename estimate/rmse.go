package estimate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RMSE accumulates root mean squared error of estimates against ground truth.
type RMSE struct {
	// sum holds running sums of squared errors per component
	sum []float64
	// n is number of accumulated samples
	n int
}

// NewRMSE creates new RMSE accumulator for vectors of length dim.
// It returns error if dim is non-positive.
func NewRMSE(dim int) (*RMSE, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid RMSE dimension: %d", dim)
	}

	return &RMSE{
		sum: make([]float64, dim),
	}, nil
}

// Add accumulates squared error between estimate est and ground truth.
// It returns error if the vector dimensions do not match.
func (r *RMSE) Add(est, truth mat.Vector) error {
	if est.Len() != len(r.sum) || truth.Len() != len(r.sum) {
		return fmt.Errorf("invalid dimensions: estimate %d, truth %d, want %d", est.Len(), truth.Len(), len(r.sum))
	}

	for i := range r.sum {
		d := est.AtVec(i) - truth.AtVec(i)
		r.sum[i] += d * d
	}
	r.n++

	return nil
}

// Value returns root mean squared error per vector component.
// It returns zero values if no samples have been accumulated.
func (r *RMSE) Value() []float64 {
	rmse := make([]float64, len(r.sum))
	if r.n == 0 {
		return rmse
	}

	floats.ScaleTo(rmse, 1/float64(r.n), r.sum)
	for i := range rmse {
		rmse[i] = math.Sqrt(rmse[i])
	}

	return rmse
}

// Count returns number of accumulated samples.
func (r *RMSE) Count() int {
	return r.n
}
