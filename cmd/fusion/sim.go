package main

import (
	"fmt"
	"os"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/fusion"
	"github.com/milosgajdos/go-fusion/measurement"
	"github.com/milosgajdos/go-fusion/model"
	"github.com/milosgajdos/go-fusion/noise"
	"github.com/milosgajdos/go-fusion/sim"
	"gonum.org/v1/gonum/mat"
)

type simCmd struct {
	Steps     int       `name:"steps" short:"n" default:"500" help:"number of simulated measurements"`
	Interval  int64     `name:"interval" default:"50000" help:"time between measurements in microseconds"`
	Start     int64     `name:"start" default:"1477010443000000" help:"timestamp of the first measurement in microseconds"`
	State     []float64 `name:"state" default:"1,1,2,1" help:"initial object state px,py,vx,vy"`
	Seed      uint64    `name:"seed" default:"1" help:"measurement noise seed"`
	Noiseless bool      `name:"noiseless" help:"simulate exact measurements"`
	Log       string    `name:"log" help:"write simulated measurements to a measurement log"`
	Output    string    `name:"output" short:"o" help:"estimates output file, standard output if omitted"`
	Plot      string    `name:"plot" short:"p" help:"save trajectory plot to PNG file"`
}

func (c *simCmd) Run(a *app) error {
	if len(c.State) != model.StateDim {
		return fmt.Errorf("invalid initial state: %v", c.State)
	}

	laserNoise, radarNoise, err := c.newNoise(a.cfg)
	if err != nil {
		return err
	}

	s, err := sim.New(laserNoise, radarNoise, sim.WithStart(c.Start), sim.WithInterval(c.Interval))
	if err != nil {
		return err
	}

	recs, err := s.Run(mat.NewVecDense(model.StateDim, c.State), c.Steps)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	a.logger.Debug("simulation finished", "steps", c.Steps, "seed", c.Seed, "noiseless", c.Noiseless)

	if c.Log != "" {
		if err := writeLog(recs, c.Log); err != nil {
			return err
		}
	}

	return a.fuse(recs, c.Output, c.Plot)
}

// newNoise returns laser and radar measurement noise of the simulation.
func (c *simCmd) newNoise(cfg fusion.Config) (filter.Noise, filter.Noise, error) {
	if c.Noiseless {
		laserNoise, err := noise.NewZero(model.LaserDim)
		if err != nil {
			return nil, nil, err
		}

		radarNoise, err := noise.NewZero(model.RadarDim)
		if err != nil {
			return nil, nil, err
		}

		return laserNoise, radarNoise, nil
	}

	laserNoise, err := noise.NewGaussianWithSeed(make([]float64, model.LaserDim), cfg.LaserCov(), c.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create laser noise: %w", err)
	}

	radarNoise, err := noise.NewGaussianWithSeed(make([]float64, model.RadarDim), cfg.RadarCov(), c.Seed+1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create radar noise: %w", err)
	}

	return laserNoise, radarNoise, nil
}

func writeLog(recs []measurement.Record, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)

	w := measurement.NewWriter(f)
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	return w.Flush()
}
