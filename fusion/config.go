package fusion

import (
	"fmt"
	"os"

	"github.com/milosgajdos/go-fusion/model"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// LaserNoise is laser measurement noise variance per axis.
type LaserNoise struct {
	VarX float64 `yaml:"var_x"`
	VarY float64 `yaml:"var_y"`
}

// RadarNoise is radar measurement noise variance per polar component.
type RadarNoise struct {
	VarRho    float64 `yaml:"var_rho"`
	VarPhi    float64 `yaml:"var_phi"`
	VarRhoDot float64 `yaml:"var_rho_dot"`
}

// ProcessNoise is acceleration noise variance per axis.
type ProcessNoise struct {
	Ax float64 `yaml:"ax"`
	Ay float64 `yaml:"ay"`
}

// InitCov is the state covariance set when tracking starts.
type InitCov struct {
	PosVar float64 `yaml:"pos_var"`
	VelVar float64 `yaml:"vel_var"`
}

// Config configures Tracker.
type Config struct {
	Laser   LaserNoise   `yaml:"laser"`
	Radar   RadarNoise   `yaml:"radar"`
	Process ProcessNoise `yaml:"process"`
	Init    InitCov      `yaml:"init"`
	// ZeroInitVelocity starts radar-initialized tracks with zero velocity
	// instead of the range rate projected on the measured bearing.
	ZeroInitVelocity bool `yaml:"zero_init_velocity"`
}

// DefaultConfig returns default tracker configuration.
func DefaultConfig() Config {
	return Config{
		Laser: LaserNoise{
			VarX: 0.0225,
			VarY: 0.0225,
		},
		Radar: RadarNoise{
			VarRho:    0.09,
			VarPhi:    0.0009,
			VarRhoDot: 0.09,
		},
		Process: ProcessNoise{
			Ax: 9,
			Ay: 9,
		},
		Init: InitCov{
			PosVar: 1,
			VelVar: 1000,
		},
	}
}

// LoadConfig reads YAML configuration from path.
// Fields missing in the file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration from data on top of DefaultConfig.
// It returns error if data is not valid YAML or the resulting configuration is invalid.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate returns error if any of the noise variances is invalid.
// Measurement and initial variances must be positive, process noise must be non-negative.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"laser.var_x":       c.Laser.VarX,
		"laser.var_y":       c.Laser.VarY,
		"radar.var_rho":     c.Radar.VarRho,
		"radar.var_phi":     c.Radar.VarPhi,
		"radar.var_rho_dot": c.Radar.VarRhoDot,
		"init.pos_var":      c.Init.PosVar,
		"init.vel_var":      c.Init.VelVar,
	} {
		if !(v > 0) {
			return fmt.Errorf("invalid config: %s must be positive, got %v", name, v)
		}
	}

	if !(c.Process.Ax >= 0) || !(c.Process.Ay >= 0) {
		return fmt.Errorf("invalid config: process noise must be non-negative, got [%v, %v]", c.Process.Ax, c.Process.Ay)
	}

	return nil
}

// LaserCov returns laser measurement noise covariance.
func (c Config) LaserCov() *mat.SymDense {
	return mat.NewSymDense(model.LaserDim, []float64{
		c.Laser.VarX, 0,
		0, c.Laser.VarY,
	})
}

// RadarCov returns radar measurement noise covariance.
func (c Config) RadarCov() *mat.SymDense {
	return mat.NewSymDense(model.RadarDim, []float64{
		c.Radar.VarRho, 0, 0,
		0, c.Radar.VarPhi, 0,
		0, 0, c.Radar.VarRhoDot,
	})
}

// InitialCov returns state covariance set when tracking starts.
func (c Config) InitialCov() *mat.SymDense {
	return model.DiagCov(c.Init.PosVar, c.Init.VelVar)
}
