package fusion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	assert.NoError(cfg.Validate())

	assert.Equal(0.0225, cfg.LaserCov().At(0, 0))
	assert.Equal(0.0225, cfg.LaserCov().At(1, 1))
	assert.Equal(0.0, cfg.LaserCov().At(0, 1))

	assert.Equal(0.09, cfg.RadarCov().At(0, 0))
	assert.Equal(0.0009, cfg.RadarCov().At(1, 1))
	assert.Equal(0.09, cfg.RadarCov().At(2, 2))

	assert.Equal(9.0, cfg.Process.Ax)
	assert.Equal(9.0, cfg.Process.Ay)

	assert.Equal(1.0, cfg.InitialCov().At(0, 0))
	assert.Equal(1000.0, cfg.InitialCov().At(3, 3))
	assert.False(cfg.ZeroInitVelocity)
}

func TestConfigValidate(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		name   string
		modify func(*Config)
	}{
		{name: "laser", modify: func(c *Config) { c.Laser.VarX = 0 }},
		{name: "radar", modify: func(c *Config) { c.Radar.VarPhi = -1 }},
		{name: "init", modify: func(c *Config) { c.Init.VelVar = 0 }},
		{name: "process", modify: func(c *Config) { c.Process.Ay = -9 }},
	} {
		cfg := DefaultConfig()
		test.modify(&cfg)
		assert.Error(cfg.Validate(), test.name)
	}

	// zero process noise is allowed
	cfg := DefaultConfig()
	cfg.Process.Ax, cfg.Process.Ay = 0, 0
	assert.NoError(cfg.Validate())
}

func TestParseConfig(t *testing.T) {
	assert := assert.New(t)

	data := []byte(`
laser:
  var_x: 0.01
process:
  ax: 4
zero_init_velocity: true
`)

	cfg, err := ParseConfig(data)
	assert.NoError(err)
	assert.Equal(0.01, cfg.Laser.VarX)
	// omitted values keep defaults
	assert.Equal(0.0225, cfg.Laser.VarY)
	assert.Equal(4.0, cfg.Process.Ax)
	assert.Equal(9.0, cfg.Process.Ay)
	assert.Equal(0.0009, cfg.Radar.VarPhi)
	assert.True(cfg.ZeroInitVelocity)

	_, err = ParseConfig([]byte("laser: [1, 2"))
	assert.Error(err)

	_, err = ParseConfig([]byte("radar:\n  var_rho: -1\n"))
	assert.Error(err)
}

func TestLoadConfig(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "fusion.yaml")
	err := os.WriteFile(path, []byte("init:\n  vel_var: 500\n"), 0o600)
	assert.NoError(err)

	cfg, err := LoadConfig(path)
	assert.NoError(err)
	assert.Equal(500.0, cfg.Init.VelVar)
	assert.Equal(1.0, cfg.Init.PosVar)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(err)
}
