package model

import (
	"fmt"
	"math"

	filter "github.com/milosgajdos/go-fusion"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// MinRangeSquared is the smallest squared range px^2+py^2 at which
// the polar measurement function is still linearized.
const MinRangeSquared = 1e-4

// PolarJacobian returns the RadarDim x StateDim Jacobian of the polar measurement
// function (rho, phi, rho dot) with respect to (px, py, vx, vy) evaluated at x.
// It returns ErrDegenerateJacobian if px^2+py^2 is smaller than MinRangeSquared.
func PolarJacobian(x mat.Vector) (*mat.Dense, error) {
	if x.Len() != StateDim {
		return nil, fmt.Errorf("%w: state %d != %d", ErrInvalidDim, x.Len(), StateDim)
	}

	px, py := x.AtVec(0), x.AtVec(1)
	vx, vy := x.AtVec(2), x.AtVec(3)

	c1 := px*px + py*py
	if c1 < MinRangeSquared {
		return nil, fmt.Errorf("%w: px=%v py=%v", ErrDegenerateJacobian, px, py)
	}
	c2 := math.Sqrt(c1)
	c3 := c1 * c2

	return mat.NewDense(RadarDim, StateDim, []float64{
		px / c2, py / c2, 0, 0,
		-py / c1, px / c1, 0, 0,
		py * (vx*py - vy*px) / c3, px * (px*vy - py*vx) / c3, px / c2, py / c2,
	}), nil
}

// NumericJacobian approximates Jacobian of observer o at x using central finite differences.
// It returns error if o fails to observe any of the perturbed states.
func NumericJacobian(o filter.Observer, x mat.Vector) (*mat.Dense, error) {
	var obsErr error

	fn := func(y, xNow []float64) {
		out, err := o.Observe(mat.NewVecDense(len(xNow), xNow))
		if err != nil {
			obsErr = err
			return
		}
		for i := range y {
			y[i] = out.AtVec(i)
		}
	}

	jac := mat.NewDense(o.Dim(), x.Len(), nil)
	fd.Jacobian(jac, fn, mat.Col(nil, 0, x), &fd.JacobianSettings{
		Formula: fd.Central,
	})

	if obsErr != nil {
		return nil, obsErr
	}

	return jac, nil
}
