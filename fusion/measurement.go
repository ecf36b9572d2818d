package fusion

import (
	"errors"
	"fmt"
	"math"

	"github.com/milosgajdos/go-fusion/model"
	"gonum.org/v1/gonum/mat"
)

// ErrMalformedMeasurement is returned for measurements of unknown sensor
// type or with values that do not match the sensor.
var ErrMalformedMeasurement = errors.New("malformed measurement")

// SensorType identifies the sensor which produced a measurement.
type SensorType int

const (
	// Laser measures Cartesian position (px, py).
	Laser SensorType = iota + 1
	// Radar measures range, bearing and range rate (rho, phi, rho dot).
	Radar
)

// Dim returns length of the measurement vector produced by the sensor.
// It returns 0 for unknown sensor types.
func (s SensorType) Dim() int {
	switch s {
	case Laser:
		return model.LaserDim
	case Radar:
		return model.RadarDim
	}

	return 0
}

// String implements the Stringer interface.
func (s SensorType) String() string {
	switch s {
	case Laser:
		return "laser"
	case Radar:
		return "radar"
	}

	return fmt.Sprintf("SensorType(%d)", int(s))
}

// Measurement is a single timestamped sensor measurement.
type Measurement struct {
	// Sensor is the sensor which produced the measurement
	Sensor SensorType
	// Values are raw measurement values
	Values []float64
	// Timestamp is measurement time in microseconds
	Timestamp int64
}

// Validate returns ErrMalformedMeasurement if the sensor type is unknown,
// the number of values does not match the sensor or any of the values is not finite.
func (m Measurement) Validate() error {
	dim := m.Sensor.Dim()
	if dim == 0 {
		return fmt.Errorf("%w: unknown sensor %v", ErrMalformedMeasurement, m.Sensor)
	}

	if len(m.Values) != dim {
		return fmt.Errorf("%w: %v measurement has %d values, expected %d", ErrMalformedMeasurement, m.Sensor, len(m.Values), dim)
	}

	for i, v := range m.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %v value %d is %v", ErrMalformedMeasurement, m.Sensor, i, v)
		}
	}

	return nil
}

// Vector returns measurement values as a vector.
func (m Measurement) Vector() *mat.VecDense {
	v := make([]float64, len(m.Values))
	copy(v, m.Values)

	return mat.NewVecDense(len(v), v)
}
