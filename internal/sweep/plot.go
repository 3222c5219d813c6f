package sweep

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot renders the result as a line chart. The image format follows the
// file extension of path (png, svg, pdf...).
func (r Result) Plot(path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s vs %s", r.Calculator, r.Output, r.Input)
	p.X.Label.Text = axisLabel(r.Input, r.InputUnit)
	p.Y.Label.Text = axisLabel(r.Output, r.OutputUnit)
	if r.Log {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	xys := make(plotter.XYs, 0, len(r.Points))
	for _, pt := range r.Points {
		if math.IsNaN(pt.Y) || math.IsInf(pt.Y, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
	}
	if len(xys) < 2 {
		return fmt.Errorf("nothing to plot: %s could not be computed across the sweep", r.Output)
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("building plot line: %w", err)
	}
	p.Add(plotter.NewGrid(), line)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	return nil
}

func axisLabel(name, unit string) string {
	if unit == "" {
		return name
	}
	return fmt.Sprintf("%s [%s]", name, unit)
}
