// Package sim simulates an object moving with constant velocity
// observed by laser and radar sensors.
package sim

import (
	"errors"
	"fmt"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/fusion"
	"github.com/milosgajdos/go-fusion/measurement"
	"github.com/milosgajdos/go-fusion/model"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultInterval is default time between two measurements in microseconds.
	DefaultInterval = 50000
	usPerSecond     = 1e6
)

// Option configures Simulator.
type Option func(*Simulator)

// WithStart sets timestamp of the first measurement in microseconds.
func WithStart(ts int64) Option {
	return func(s *Simulator) {
		s.start = ts
	}
}

// WithInterval sets time between two measurements in microseconds.
func WithInterval(us int64) Option {
	return func(s *Simulator) {
		s.interval = us
	}
}

// Simulator generates alternating laser and radar measurements
// of an object moving with constant velocity.
type Simulator struct {
	motion     *model.ConstantVelocity
	laser      *model.Laser
	radar      *model.Radar
	laserNoise filter.Noise
	radarNoise filter.Noise
	start      int64
	interval   int64
}

// New creates new Simulator which corrupts laser and radar measurements
// with laserNoise and radarNoise respectively.
// It returns error if noise dimensions do not match the sensors.
func New(laserNoise, radarNoise filter.Noise, opts ...Option) (*Simulator, error) {
	if laserNoise == nil || radarNoise == nil {
		return nil, errors.New("invalid noise: nil")
	}

	// New must not draw noise samples
	if n := laserNoise.Cov().SymmetricDim(); n != model.LaserDim {
		return nil, fmt.Errorf("invalid laser noise dimension: %d", n)
	}

	if n := radarNoise.Cov().SymmetricDim(); n != model.RadarDim {
		return nil, fmt.Errorf("invalid radar noise dimension: %d", n)
	}

	// trajectory follows the motion model exactly
	motion, err := model.NewConstantVelocity(0, 0)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		motion:     motion,
		laser:      model.NewLaser(),
		radar:      model.NewRadar(),
		laserNoise: laserNoise,
		radarNoise: radarNoise,
		interval:   DefaultInterval,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.interval <= 0 {
		return nil, fmt.Errorf("invalid interval: %d", s.interval)
	}

	return s, nil
}

// Run simulates steps measurements of an object starting at state x0.
// Even steps are measured by laser and odd steps by radar. Radar can not
// measure an object sitting on it: such steps are measured by laser instead.
// Every returned record carries the true object state as ground truth.
func (s *Simulator) Run(x0 mat.Vector, steps int) ([]measurement.Record, error) {
	if x0.Len() != model.StateDim {
		return nil, fmt.Errorf("%w: initial state %d != %d", model.ErrInvalidDim, x0.Len(), model.StateDim)
	}

	if steps < 0 {
		return nil, fmt.Errorf("invalid number of steps: %d", steps)
	}

	dt := float64(s.interval) / usPerSecond
	x := mat.VecDenseCopyOf(x0)
	recs := make([]measurement.Record, 0, steps)

	for i := 0; i < steps; i++ {
		m, err := s.measure(x, i%2 == 1)
		if err != nil {
			return nil, err
		}
		m.Timestamp = s.start + int64(i)*s.interval

		recs = append(recs, measurement.Record{
			Measurement: m,
			GroundTruth: mat.VecDenseCopyOf(x),
		})

		next, err := s.motion.Propagate(x, dt)
		if err != nil {
			return nil, err
		}
		x.CopyVec(next)
	}

	return recs, nil
}

// measure returns noisy measurement of state x.
func (s *Simulator) measure(x mat.Vector, radar bool) (fusion.Measurement, error) {
	if radar {
		y, err := s.radar.Observe(x)
		if err == nil {
			z := mat.NewVecDense(model.RadarDim, nil)
			z.AddVec(y, s.radarNoise.Sample())
			z.SetVec(1, model.NormalizeAngle(z.AtVec(1)))

			return fusion.Measurement{
				Sensor: fusion.Radar,
				Values: mat.Col(nil, 0, z),
			}, nil
		}

		if !errors.Is(err, model.ErrDegenerateJacobian) {
			return fusion.Measurement{}, err
		}
	}

	y, err := s.laser.Observe(x)
	if err != nil {
		return fusion.Measurement{}, err
	}

	z := mat.NewVecDense(model.LaserDim, nil)
	z.AddVec(y, s.laserNoise.Sample())

	return fusion.Measurement{
		Sensor: fusion.Laser,
		Values: mat.Col(nil, 0, z),
	}, nil
}

// Positions returns true object positions and measured positions of recs
// as matrices with one (x, y) row per record. Radar measurements are converted
// from polar coordinates. Records without ground truth are left out of truth.
func Positions(recs []measurement.Record) (truth, measured *mat.Dense, err error) {
	if len(recs) == 0 {
		return nil, nil, errors.New("no records")
	}

	var gt []float64
	meas := make([]float64, 0, 2*len(recs))

	for _, rec := range recs {
		m := rec.Measurement
		if err := m.Validate(); err != nil {
			return nil, nil, err
		}

		switch m.Sensor {
		case fusion.Laser:
			meas = append(meas, m.Values[0], m.Values[1])
		case fusion.Radar:
			x, err := model.PolarToState(m.Vector())
			if err != nil {
				return nil, nil, err
			}
			meas = append(meas, x.AtVec(0), x.AtVec(1))
		}

		if rec.HasGroundTruth() {
			gt = append(gt, rec.GroundTruth.AtVec(0), rec.GroundTruth.AtVec(1))
		}
	}

	measured = mat.NewDense(len(meas)/2, 2, meas)
	if len(gt) > 0 {
		truth = mat.NewDense(len(gt)/2, 2, gt)
	}

	return truth, measured, nil
}
