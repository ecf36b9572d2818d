package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RadarDim is the length of radar measurement vector (rho, phi, rho dot).
const RadarDim = 3

var (
	// ErrDegenerateJacobian is returned when the polar measurement function
	// can not be linearized because the object is too close to the sensor.
	ErrDegenerateJacobian = errors.New("degenerate jacobian: range too close to zero")
	// ErrInvalidDim is returned when a vector has unexpected dimension.
	ErrInvalidDim = errors.New("invalid dimension")
)

// Radar is a nonlinear observer of range, bearing and range rate.
type Radar struct{}

// NewRadar creates new radar observer and returns it.
func NewRadar() *Radar {
	return &Radar{}
}

// Observe maps Cartesian state x to polar measurement space (rho, phi, rho dot).
// It returns ErrDegenerateJacobian if x is too close to the origin for range rate to be defined.
func (r *Radar) Observe(x mat.Vector) (mat.Vector, error) {
	if x.Len() != StateDim {
		return nil, fmt.Errorf("%w: state %d != %d", ErrInvalidDim, x.Len(), StateDim)
	}

	px, py := x.AtVec(0), x.AtVec(1)
	vx, vy := x.AtVec(2), x.AtVec(3)

	rr := px*px + py*py
	if rr < MinRangeSquared {
		return nil, fmt.Errorf("%w: px=%v py=%v", ErrDegenerateJacobian, px, py)
	}
	rho := math.Sqrt(rr)

	return mat.NewVecDense(RadarDim, []float64{
		rho,
		math.Atan2(py, px),
		(px*vx + py*vy) / rho,
	}), nil
}

// Residual returns z - y with the bearing component normalized into (-pi, pi].
func (r *Radar) Residual(z, y mat.Vector) (*mat.VecDense, error) {
	if z.Len() != RadarDim || y.Len() != RadarDim {
		return nil, fmt.Errorf("%w: radar residual [%d, %d]", ErrInvalidDim, z.Len(), y.Len())
	}

	res := mat.NewVecDense(RadarDim, nil)
	res.SubVec(z, y)
	res.SetVec(1, NormalizeAngle(res.AtVec(1)))

	return res, nil
}

// Jacobian returns radar observation Jacobian evaluated at x.
func (r *Radar) Jacobian(x mat.Vector) (*mat.Dense, error) {
	return PolarJacobian(x)
}

// Dim returns radar output dimension
func (r *Radar) Dim() int {
	return RadarDim
}

// PolarToState converts radar measurement z into a Cartesian state.
// Velocity is the range rate projected on both axes using the measured bearing;
// the tangential velocity component is not observable from a single measurement.
func PolarToState(z mat.Vector) (*mat.VecDense, error) {
	if z.Len() != RadarDim {
		return nil, fmt.Errorf("%w: radar measurement %d != %d", ErrInvalidDim, z.Len(), RadarDim)
	}

	rho, phi, rhoDot := z.AtVec(0), z.AtVec(1), z.AtVec(2)
	sin, cos := math.Sincos(phi)

	return mat.NewVecDense(StateDim, []float64{
		rho * cos,
		rho * sin,
		rhoDot * cos,
		rhoDot * sin,
	}), nil
}

// NormalizeAngle maps angle a in radians into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Remainder(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	}

	return a
}
