package fusion

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/milosgajdos/go-fusion/matrix"
	"github.com/milosgajdos/go-fusion/model"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func newTracker(t *testing.T, opts ...Option) *Tracker {
	tr, err := New(DefaultConfig(), opts...)
	assert.NoError(t, err)
	assert.NotNil(t, tr)

	return tr
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	tr, err := New(DefaultConfig())
	assert.NotNil(tr)
	assert.NoError(err)
	assert.False(tr.Initialized())

	cfg := DefaultConfig()
	cfg.Laser.VarY = 0
	tr, err = New(cfg)
	assert.Nil(tr)
	assert.Error(err)
}

func TestInitLaser(t *testing.T) {
	assert := assert.New(t)

	tr := newTracker(t)

	est, err := tr.ProcessMeasurement(Measurement{Sensor: Laser, Values: []float64{3, 4}, Timestamp: 1477010443000000})
	assert.NoError(err)
	assert.True(tr.Initialized())

	assert.Equal([]float64{3, 4, 0, 0}, mat.Col(nil, 0, est.Val()))
	assert.True(mat.Equal(DefaultConfig().InitialCov(), est.Cov()))
}

func TestInitRadar(t *testing.T) {
	assert := assert.New(t)

	tr := newTracker(t)

	est, err := tr.ProcessMeasurement(Measurement{Sensor: Radar, Values: []float64{5, 0, 0}, Timestamp: 0})
	assert.NoError(err)
	assert.InDeltaSlice([]float64{5, 0, 0, 0}, mat.Col(nil, 0, est.Val()), 1e-12)

	// range rate is projected on the measured bearing
	tr.Reset()
	assert.False(tr.Initialized())
	est, err = tr.ProcessMeasurement(Measurement{Sensor: Radar, Values: []float64{2, math.Pi / 2, 1}, Timestamp: 0})
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0, 2, 0, 1}, mat.Col(nil, 0, est.Val()), 1e-12)

	// radar velocity may start from zero
	cfg := DefaultConfig()
	cfg.ZeroInitVelocity = true
	tr, err = New(cfg)
	assert.NoError(err)
	est, err = tr.ProcessMeasurement(Measurement{Sensor: Radar, Values: []float64{2, math.Pi / 2, 1}, Timestamp: 0})
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0, 2, 0, 0}, mat.Col(nil, 0, est.Val()), 1e-12)
}

func TestProcessMeasurementMalformed(t *testing.T) {
	assert := assert.New(t)

	tr := newTracker(t)

	for _, m := range []Measurement{
		{Sensor: SensorType(42), Values: []float64{1, 2}},
		{Sensor: Laser, Values: []float64{1, 2, 3}},
		{Sensor: Radar, Values: []float64{1, 2}},
		{Sensor: Laser, Values: []float64{math.NaN(), 2}},
	} {
		est, err := tr.ProcessMeasurement(m)
		assert.Nil(est)
		assert.ErrorIs(err, ErrMalformedMeasurement)
		assert.False(tr.Initialized())
	}

	_, err := tr.ProcessMeasurement(Measurement{Sensor: Laser, Values: []float64{1, 2}, Timestamp: 0})
	assert.NoError(err)

	// malformed measurements are reported while tracking too and do not change the state
	before, err := tr.Estimate()
	assert.NoError(err)
	est, err := tr.ProcessMeasurement(Measurement{Sensor: Radar, Values: []float64{1}, Timestamp: 100000})
	assert.Nil(est)
	assert.ErrorIs(err, ErrMalformedMeasurement)
	after, err := tr.Estimate()
	assert.NoError(err)
	assert.True(mat.Equal(before.Val(), after.Val()))
}

func TestEstimate(t *testing.T) {
	assert := assert.New(t)

	tr := newTracker(t)

	est, err := tr.Estimate()
	assert.Nil(est)
	assert.ErrorIs(err, ErrNotInitialized)

	_, err = tr.ProcessMeasurement(Measurement{Sensor: Laser, Values: []float64{1, 2}, Timestamp: 0})
	assert.NoError(err)

	est, err = tr.Estimate()
	assert.NotNil(est)
	assert.NoError(err)

	tr.Reset()
	est, err = tr.Estimate()
	assert.Nil(est)
	assert.ErrorIs(err, ErrNotInitialized)
}

// trajectory returns true states of an object moving with constant velocity
// sampled every dt microseconds.
func trajectory(x0 []float64, dt int64, n int) []*mat.VecDense {
	cv, _ := model.NewConstantVelocity(0, 0)

	states := make([]*mat.VecDense, n)
	x := mat.NewVecDense(model.StateDim, x0)
	for i := 0; i < n; i++ {
		states[i] = mat.VecDenseCopyOf(x)
		next, _ := cv.Propagate(x, float64(dt)/usPerSecond)
		x = mat.VecDenseCopyOf(next)
	}

	return states
}

func TestNoiselessLaserConvergence(t *testing.T) {
	assert := assert.New(t)

	tr := newTracker(t)

	dt := int64(100000)
	truth := trajectory([]float64{0.5, -1.0, 2.0, 1.0}, dt, 60)

	var x mat.Vector
	for i, s := range truth {
		est, err := tr.ProcessMeasurement(Measurement{
			Sensor:    Laser,
			Values:    []float64{s.AtVec(0), s.AtVec(1)},
			Timestamp: int64(i) * dt,
		})
		assert.NoError(err)
		x = est.Val()
	}

	last := truth[len(truth)-1]
	for i := 0; i < model.StateDim; i++ {
		assert.InDelta(last.AtVec(i), x.AtVec(i), 0.05)
	}
	assert.Equal(0, tr.Skipped())
}

func TestNoiselessFusionConvergence(t *testing.T) {
	assert := assert.New(t)

	tr := newTracker(t)

	dt := int64(50000)
	truth := trajectory([]float64{5.0, 2.0, -1.0, 1.5}, dt, 100)
	radar := model.NewRadar()

	var x mat.Vector
	for i, s := range truth {
		m := Measurement{Timestamp: 1477010443000000 + int64(i)*dt}
		if i%2 == 0 {
			m.Sensor = Laser
			m.Values = []float64{s.AtVec(0), s.AtVec(1)}
		} else {
			y, err := radar.Observe(s)
			assert.NoError(err)
			m.Sensor = Radar
			m.Values = mat.Col(nil, 0, y)
		}

		est, err := tr.ProcessMeasurement(m)
		assert.NoError(err)
		x = est.Val()
		assert.True(matrix.IsFinite(x))
		assert.True(matrix.IsFinite(est.Cov()))
	}

	last := truth[len(truth)-1]
	for i := 0; i < model.StateDim; i++ {
		assert.InDelta(last.AtVec(i), x.AtVec(i), 0.05)
	}
}

func TestRadarBearingWrap(t *testing.T) {
	assert := assert.New(t)

	tr := newTracker(t)

	// object moves across the negative x axis where bearing wraps around pi
	dt := int64(100000)
	truth := trajectory([]float64{-5.0, 1.0, 0.0, -2.0}, dt, 30)
	radar := model.NewRadar()

	var x mat.Vector
	for i, s := range truth {
		y, err := radar.Observe(s)
		assert.NoError(err)

		est, err := tr.ProcessMeasurement(Measurement{
			Sensor:    Radar,
			Values:    mat.Col(nil, 0, y),
			Timestamp: int64(i) * dt,
		})
		assert.NoError(err)
		x = est.Val()
		assert.True(matrix.IsFinite(x))
	}

	last := truth[len(truth)-1]
	assert.InDelta(last.AtVec(0), x.AtVec(0), 0.2)
	assert.InDelta(last.AtVec(1), x.AtVec(1), 0.2)
	assert.Equal(0, tr.Skipped())
}

func TestDegenerateRadarSkipped(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	tr := newTracker(t, WithLogger(logger))

	_, err := tr.ProcessMeasurement(Measurement{Sensor: Laser, Values: []float64{0, 0}, Timestamp: 0})
	assert.NoError(err)

	// object sits on the radar: the update is skipped and the prediction is kept
	est, err := tr.ProcessMeasurement(Measurement{Sensor: Radar, Values: []float64{0, 0, 0}, Timestamp: 100000})
	assert.NoError(err)
	assert.NotNil(est)
	assert.Equal(1, tr.Skipped())
	assert.True(matrix.IsFinite(est.Val()))
	assert.True(matrix.IsFinite(est.Cov()))
	assert.Contains(buf.String(), "measurement update skipped")

	// covariance grew by the prediction only
	assert.Greater(est.Cov().At(0, 0), DefaultConfig().Init.PosVar)

	// tracking continues with the next measurement
	est, err = tr.ProcessMeasurement(Measurement{Sensor: Laser, Values: []float64{0.1, 0.1}, Timestamp: 200000})
	assert.NoError(err)
	assert.True(matrix.IsFinite(est.Val()))
	assert.Equal(1, tr.Skipped())
}

func TestZeroAndNegativeElapsedTime(t *testing.T) {
	assert := assert.New(t)

	tr := newTracker(t)

	_, err := tr.ProcessMeasurement(Measurement{Sensor: Laser, Values: []float64{1, 1}, Timestamp: 1000000})
	assert.NoError(err)

	// duplicate timestamp
	est, err := tr.ProcessMeasurement(Measurement{Sensor: Laser, Values: []float64{1.1, 1.0}, Timestamp: 1000000})
	assert.NoError(err)
	assert.True(matrix.IsFinite(est.Val()))

	// out of order timestamp
	est, err = tr.ProcessMeasurement(Measurement{Sensor: Radar, Values: []float64{1.5, 0.8, 0}, Timestamp: 900000})
	assert.NoError(err)
	assert.True(matrix.IsFinite(est.Val()))
	assert.True(matrix.IsFinite(est.Cov()))
	assert.Equal(int64(1000000), tr.prevTimestamp)
}
