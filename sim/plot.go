package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NewTrajectoryPlot creates new plot of the object trajectory from the three data sources:
// truth:     true object positions, may be nil if not known
// measured:  measured positions
// estimated: filter position estimates
// Every data source is a matrix with the x and y coordinates in its first two columns.
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * measured or estimated data matrix is nil
// * either of the supplied data matrices does not have at least 2 columns
// * gonum plot fails to be created
func NewTrajectoryPlot(truth, measured, estimated *mat.Dense) (*plot.Plot, error) {
	if measured == nil || estimated == nil {
		return nil, fmt.Errorf("invalid data supplied")
	}

	for _, m := range []*mat.Dense{truth, measured, estimated} {
		if m == nil {
			continue
		}
		if _, c := m.Dims(); c < 2 {
			return nil, fmt.Errorf("invalid data dimensions: %d columns", c)
		}
	}

	p := plot.New()

	p.Title.Text = "Trajectory"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	if truth != nil {
		truthLine, err := plotter.NewLine(makePoints(truth))
		if err != nil {
			return nil, fmt.Errorf("failed to create line: %w", err)
		}
		truthLine.LineStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
		truthLine.LineStyle.Width = vg.Points(1)

		p.Add(truthLine)
		p.Legend.Add("truth", truthLine)
	}

	measScatter, err := plotter.NewScatter(makePoints(measured))
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %w", err)
	}
	measScatter.GlyphStyle.Color = color.RGBA{G: 255, A: 128}
	measScatter.GlyphStyle.Radius = vg.Points(2)

	p.Add(measScatter)
	p.Legend.Add("measurement", measScatter)

	estScatter, err := plotter.NewScatter(makePoints(estimated))
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %w", err)
	}
	estScatter.GlyphStyle.Color = color.RGBA{R: 169, G: 169, B: 169, A: 255}
	estScatter.Shape = draw.CrossGlyph{}
	estScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(estScatter)
	p.Legend.Add("estimate", estScatter)

	return p, nil
}

func makePoints(m *mat.Dense) plotter.XYs {
	r, _ := m.Dims()
	pts := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		pts[i].X = m.At(i, 0)
		pts[i].Y = m.At(i, 1)
	}

	return pts
}
