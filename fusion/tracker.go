package fusion

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/kalman/ekf"
	"github.com/milosgajdos/go-fusion/model"
	"gonum.org/v1/gonum/mat"
)

// ErrNotInitialized is returned when tracker estimate is requested before the first measurement.
var ErrNotInitialized = errors.New("tracker not initialized")

// usPerSecond converts measurement timestamps to seconds.
const usPerSecond = 1e6

// Option configures Tracker.
type Option func(*Tracker)

// WithLogger sets tracker logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// Tracker fuses laser and radar measurements of a single object
// into a constant velocity state estimate using Extended Kalman Filter.
// Tracker is not safe for concurrent use: measurements must be processed in time order.
type Tracker struct {
	cfg    Config
	motion *model.ConstantVelocity
	laser  *model.Laser
	radar  *model.Radar
	rLaser *mat.SymDense
	rRadar *mat.SymDense
	logger *slog.Logger

	kf            *ekf.EKF
	initialized   bool
	prevTimestamp int64
	skipped       int
}

// New creates new Tracker and returns it.
// It returns error if cfg is invalid.
func New(cfg Config, opts ...Option) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	motion, err := model.NewConstantVelocity(cfg.Process.Ax, cfg.Process.Ay)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		cfg:    cfg,
		motion: motion,
		laser:  model.NewLaser(),
		radar:  model.NewRadar(),
		rLaser: cfg.LaserCov(),
		rRadar: cfg.RadarCov(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// ProcessMeasurement fuses measurement m into the tracked state and returns the new estimate.
//
// The first measurement initializes the state. Every following measurement
// propagates the state by the time elapsed since the previous measurement and
// corrects it with m. If the correction is numerically undefined, i.e. the object
// is too close to the radar to linearize its observation or the innovation
// covariance is singular, the correction is skipped and the predicted estimate is returned.
// A measurement older than the previous one is fused at the current tracker time and does
// not move the tracker time back.
//
// It returns ErrMalformedMeasurement if m is invalid.
func (t *Tracker) ProcessMeasurement(m Measurement) (filter.Estimate, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	z := m.Vector()

	if !t.initialized {
		return t.init(m.Sensor, z, m.Timestamp)
	}

	if err := t.predict(m.Timestamp); err != nil {
		return nil, err
	}

	var err error
	switch m.Sensor {
	case Radar:
		err = t.updateRadar(z)
	case Laser:
		err = t.updateLaser(z)
	}

	if err != nil {
		if !errors.Is(err, model.ErrDegenerateJacobian) && !errors.Is(err, ekf.ErrSingularCov) {
			return nil, err
		}
		t.skipped++
		t.logger.Warn("measurement update skipped",
			"sensor", m.Sensor.String(),
			"timestamp", m.Timestamp,
			"err", err)
	}

	return t.kf.Estimate()
}

// init starts tracking from the first measurement z.
func (t *Tracker) init(s SensorType, z *mat.VecDense, ts int64) (filter.Estimate, error) {
	x := mat.NewVecDense(model.StateDim, nil)

	switch s {
	case Radar:
		state, err := model.PolarToState(z)
		if err != nil {
			return nil, err
		}
		x.CopyVec(state)
		if t.cfg.ZeroInitVelocity {
			x.SetVec(2, 0)
			x.SetVec(3, 0)
		}
	case Laser:
		x.SetVec(0, z.AtVec(0))
		x.SetVec(1, z.AtVec(1))
	}

	kf, err := ekf.New(model.NewInitCond(x, t.cfg.InitialCov()))
	if err != nil {
		return nil, fmt.Errorf("failed to create filter: %w", err)
	}

	t.kf = kf
	t.prevTimestamp = ts
	t.initialized = true

	t.logger.Debug("tracking initialized",
		"sensor", s.String(),
		"timestamp", ts)

	return t.kf.Estimate()
}

// predict propagates the state to timestamp ts.
// Measurements older than the previous one do not move the state back in time.
func (t *Tracker) predict(ts int64) error {
	dt := float64(ts-t.prevTimestamp) / usPerSecond
	if dt < 0 {
		t.logger.Warn("out of order measurement",
			"timestamp", ts,
			"previous", t.prevTimestamp)
		dt = 0
	} else {
		t.prevTimestamp = ts
	}

	if err := t.kf.SetTransition(t.motion.StateMatrix(dt)); err != nil {
		return err
	}

	if err := t.kf.SetProcessCov(t.motion.ProcessCov(dt)); err != nil {
		return err
	}

	if _, err := t.kf.Predict(); err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	return nil
}

func (t *Tracker) updateRadar(z mat.Vector) error {
	hj, err := t.radar.Jacobian(t.kf.State())
	if err != nil {
		return err
	}

	if err := t.kf.SetOutput(hj, t.rRadar); err != nil {
		return err
	}

	_, err = t.kf.UpdateNonlinear(z, t.radar)

	return err
}

func (t *Tracker) updateLaser(z mat.Vector) error {
	if err := t.kf.SetOutput(t.laser.OutputMatrix(), t.rLaser); err != nil {
		return err
	}

	_, err := t.kf.Update(z)

	return err
}

// Estimate returns current tracker estimate.
// It returns ErrNotInitialized if no measurement has been processed yet.
func (t *Tracker) Estimate() (filter.Estimate, error) {
	if !t.initialized {
		return nil, ErrNotInitialized
	}

	return t.kf.Estimate()
}

// Initialized returns true once the tracker has processed its first measurement.
func (t *Tracker) Initialized() bool {
	return t.initialized
}

// Skipped returns number of measurement updates skipped due to numerical degeneracy.
func (t *Tracker) Skipped() int {
	return t.skipped
}

// Reset discards the tracked state: the next measurement starts a new track.
func (t *Tracker) Reset() {
	t.kf = nil
	t.initialized = false
	t.prevTimestamp = 0
	t.skipped = 0
}
