/*
 * plot.go, part of qhop.
 *
 * Copyright 2025 Raul Mera A. (rmeraaatacademicosdotutadotcl)
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package hopstat

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plotSize is the side of the saved plots.
const plotSize = 4 * vg.Inch

// PlotProbabilities saves a histogram of the probabilities of the candidates
// collected by C in filename. The format is taken from the extension.
func PlotProbabilities(C *Collector, title, filename string) error {
	H := C.Histo()
	if H.Total() == 0 {
		return fmt.Errorf("hopstat: PlotProbabilities: no candidates collected")
	}
	d := H.Dividers()
	h := &plotter.Histogram{
		Bins:      make([]plotter.HistogramBin, len(H.View())),
		Width:     d[1] - d[0],
		FillColor: color.Gray{Y: 128},
		LineStyle: plotter.DefaultLineStyle,
	}
	for i, v := range H.View() {
		h.Bins[i] = plotter.HistogramBin{Min: d[i], Max: d[i+1], Weight: v}
	}
	p := basicPlot(title, "Probability", "Candidates")
	p.X.Min = 0
	p.X.Max = 1
	p.Add(h)
	if err := p.Save(plotSize, plotSize, filename); err != nil {
		return fmt.Errorf("hopstat: PlotProbabilities: %w", err)
	}
	return nil
}

// PlotHops saves a plot of the number of hops applied per cycle in filename.
func PlotHops(C *Collector, title, filename string) error {
	steps, hops := C.HopsPerStep()
	if len(steps) == 0 {
		return fmt.Errorf("hopstat: PlotHops: no cycles collected")
	}
	xys := make(plotter.XYs, len(steps))
	for i := range steps {
		xys[i].X = steps[i]
		xys[i].Y = hops[i]
	}
	l, s, err := plotter.NewLinePoints(xys)
	if err != nil {
		return fmt.Errorf("hopstat: PlotHops: %w", err)
	}
	p := basicPlot(title, "Step", "Hops")
	p.Y.Min = 0
	p.Add(l, s)
	if err := p.Save(2*plotSize, plotSize, filename); err != nil {
		return fmt.Errorf("hopstat: PlotHops: %w", err)
	}
	return nil
}

func basicPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Add(plotter.NewGrid())
	return p
}
