package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	filter "github.com/milosgajdos/go-fusion"
	"github.com/milosgajdos/go-fusion/estimate"
	"github.com/milosgajdos/go-fusion/fusion"
	"github.com/milosgajdos/go-fusion/matrix"
	"github.com/milosgajdos/go-fusion/measurement"
	"github.com/milosgajdos/go-fusion/model"
	"github.com/milosgajdos/go-fusion/sim"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"
)

type runCmd struct {
	Input  string `arg:"" optional:"" name:"input" type:"existingfile" help:"measurement log, standard input if omitted"`
	Output string `name:"output" short:"o" help:"estimates output file, standard output if omitted"`
	Plot   string `name:"plot" short:"p" help:"save trajectory plot to PNG file"`
}

func (c *runCmd) Run(a *app) error {
	in := io.Reader(os.Stdin)
	if c.Input != "" {
		f, err := os.Open(c.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	recs, err := measurement.NewReader(in).ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read measurements: %w", err)
	}

	a.logger.Debug("measurements read", "count", len(recs))

	return a.fuse(recs, c.Output, c.Plot)
}

// fuse runs tracker over recs, writes estimates to output and saves the
// trajectory plot to plotPath if it is not empty.
func (a *app) fuse(recs []measurement.Record, output, plotPath string) (err error) {
	out := io.Writer(os.Stdout)
	if output != "" {
		f, cerr := os.Create(output)
		if cerr != nil {
			return cerr
		}
		defer closeFile(f, &err)
		out = f
	}

	w := bufio.NewWriter(out)

	tr, err := fusion.New(a.cfg, fusion.WithLogger(a.logger))
	if err != nil {
		return err
	}

	rmse, err := estimate.NewRMSE(model.StateDim)
	if err != nil {
		return err
	}

	positions := make([]float64, 0, 2*len(recs))
	var last filter.Estimate

	for _, rec := range recs {
		est, err := tr.ProcessMeasurement(rec.Measurement)
		if err != nil {
			if errors.Is(err, fusion.ErrMalformedMeasurement) {
				a.logger.Warn("measurement dropped", "timestamp", rec.Measurement.Timestamp, "err", err)
				continue
			}
			return err
		}

		x := est.Val()
		if err := writeEstimate(w, rec.Measurement.Timestamp, x); err != nil {
			return err
		}
		positions = append(positions, x.AtVec(0), x.AtVec(1))
		last = est

		if rec.HasGroundTruth() {
			if err := rmse.Add(x, rec.GroundTruth); err != nil {
				return err
			}
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}

	a.logger.Info("fusion finished",
		"measurements", len(recs),
		"estimates", len(positions)/2,
		"skipped", tr.Skipped())

	if last != nil {
		a.logger.Debug("final estimate",
			"state", fmt.Sprintf("%v", matrix.Format(last.Val())),
			"variance", matrix.Diag(last.Cov()))
	}

	if rmse.Count() > 0 {
		v := rmse.Value()
		a.logger.Info("accuracy",
			"rmse_px", v[0],
			"rmse_py", v[1],
			"rmse_vx", v[2],
			"rmse_vy", v[3])
	}

	if plotPath == "" || len(positions) == 0 {
		return nil
	}

	return savePlot(recs, mat.NewDense(len(positions)/2, 2, positions), plotPath)
}

// closeFile closes c and stores its error in err unless err is already set.
func closeFile(c io.Closer, err *error) {
	if cerr := c.Close(); *err == nil {
		*err = cerr
	}
}

func writeEstimate(w io.Writer, ts int64, x mat.Vector) error {
	line := strconv.FormatInt(ts, 10)
	for i := 0; i < x.Len(); i++ {
		line += "\t" + strconv.FormatFloat(x.AtVec(i), 'f', 6, 64)
	}

	_, err := fmt.Fprintln(w, line)

	return err
}

func savePlot(recs []measurement.Record, estimated *mat.Dense, path string) error {
	truth, measured, err := sim.Positions(recs)
	if err != nil {
		return err
	}

	p, err := sim.NewTrajectoryPlot(truth, measured, estimated)
	if err != nil {
		return err
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}

	return nil
}
