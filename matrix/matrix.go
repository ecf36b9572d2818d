package matrix

import (
	"fmt"
	"math"

	mx "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// Eye returns n x n identity matrix.
// It returns error if n is non-positive.
func Eye(n int) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid identity dimension: %d", n)
	}

	return mx.NewDenseValIdentity(n, 1.0)
}

// Symmetrize stores the symmetric part of square matrix m, (m + m')/2, in dst.
// It returns error if m is not square or its size does not match dst.
func Symmetrize(dst *mat.SymDense, m mat.Matrix) error {
	r, c := m.Dims()
	if r != c {
		return fmt.Errorf("invalid matrix dimensions: [%d x %d]", r, c)
	}

	if dst.SymmetricDim() != r {
		return fmt.Errorf("invalid symmetric matrix dimension: %d != %d", dst.SymmetricDim(), r)
	}

	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			dst.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	return nil
}

// IsFinite returns true if none of the elements of m is NaN or Inf.
func IsFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}

	return true
}

// Diag returns a slice containing the diagonal elements of square matrix m.
// It panics if m is nil.
func Diag(m mat.Matrix) []float64 {
	r, c := m.Dims()
	n := min(r, c)
	diag := make([]float64, n)

	for i := 0; i < n; i++ {
		diag[i] = m.At(i, i)
	}

	return diag
}

// Format returns m formatted for printing.
func Format(m mat.Matrix) fmt.Formatter {
	return mx.Format(m)
}
