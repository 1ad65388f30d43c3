// Package plotting renders calibration results as images with gonum/plot.
// The output format follows the file extension. Histogram draws to a terminal.
package plotting

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/dvrk-tools/palpcal/fit"
	"github.com/dvrk-tools/palpcal/offsetsweep"
	"github.com/dvrk-tools/palpcal/palpation"
	"github.com/dvrk-tools/palpcal/samples"
)

var (
	pointColor = color.RGBA{G: 128, A: 255}
	fitColor   = color.RGBA{B: 200, A: 255}
	markColor  = color.RGBA{R: 220, A: 255}
)

const (
	width  = 8 * vg.Inch
	height = 5 * vg.Inch
)

// Curve plots a sweep curve with its smoothing polynomial and the chosen offset.
func Curve(path string, curve offsetsweep.Curve, res offsetsweep.OffsetResult) error {
	if len(curve) == 0 {
		return offsetsweep.ErrEmptyCurve
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Offset vs error (chosen %.6g)", res.Value)
	p.X.Label.Text = "Offset"
	p.Y.Label.Text = "Fit error"

	pts := make(plotter.XYs, len(curve))
	for i, c := range curve {
		pts[i] = plotter.XY{X: c.Offset, Y: c.Error}
	}
	if err := addScatter(p, "curve", pts, pointColor, vg.Points(2)); err != nil {
		return err
	}

	if res.Polynomial != nil {
		poly := *res.Polynomial
		fn := plotter.NewFunction(poly.Eval)
		fn.XMin, fn.XMax = curve[0].Offset, curve[len(curve)-1].Offset
		fn.Samples = 200
		fn.Color = fitColor
		fn.Width = vg.Points(1)
		p.Add(fn)
		p.Legend.Add(fmt.Sprintf("degree %d fit", poly.Degree()), fn)
	}

	chosen := plotter.XYs{{X: res.Value, Y: res.MinimumError}}
	if res.Polynomial != nil && res.Smoothed {
		chosen[0].Y = res.Polynomial.Eval(res.Value)
	}
	if err := addScatter(p, "chosen", chosen, markColor, vg.Points(5)); err != nil {
		return err
	}
	return save(p, path)
}

// Trace plots the wrench read at each height of a palpation, with the
// estimated surface height when surfaceZ is not NaN.
func Trace(path string, trace palpation.Trace, surfaceZ float64) error {
	if len(trace) == 0 {
		return palpation.ErrShortTrace
	}
	p := plot.New()
	p.Title.Text = "Palpation"
	p.X.Label.Text = "Z position (mm)"
	p.Y.Label.Text = "Wrench"

	coarse := make(plotter.XYs, 0, len(trace))
	fine := make(plotter.XYs, 0, len(trace))
	for _, step := range trace {
		xy := plotter.XY{X: step.Pose.Point().Z, Y: step.Force}
		if step.Phase == palpation.FineDescend {
			fine = append(fine, xy)
		} else {
			coarse = append(coarse, xy)
		}
	}
	if len(coarse) > 0 {
		if err := addScatter(p, "coarse", coarse, pointColor, vg.Points(2)); err != nil {
			return err
		}
	}
	if len(fine) > 0 {
		if err := addScatter(p, "fine", fine, fitColor, vg.Points(2)); err != nil {
			return err
		}
	}
	if !math.IsNaN(surfaceZ) {
		minY, maxY := math.Inf(1), math.Inf(-1)
		for _, step := range trace {
			minY = min(minY, step.Force)
			maxY = max(maxY, step.Force)
		}
		line, err := plotter.NewLine(plotter.XYs{{X: surfaceZ, Y: minY}, {X: surfaceZ, Y: maxY}})
		if err != nil {
			return errors.Wrap(err, "surface line")
		}
		line.Color = markColor
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("surface %.3f", surfaceZ), line)
	}
	return save(p, path)
}

// SampleResiduals returns each sample's residual with a short description of
// the fit: distance to the best fit plane for plane runs, registration error
// for tracker runs.
func SampleResiduals(ss samples.SampleSet, conv fit.ErrorConvention) ([]float64, string, error) {
	if err := ss.NonEmpty(); err != nil {
		return nil, "", err
	}
	positions := ss.Positions()
	residuals := make([]float64, len(positions))

	if ss.Schema() == samples.SchemaTracker {
		targets, err := ss.TrackerPoints()
		if err != nil {
			return nil, "", err
		}
		rt, err := fit.RegisterRigid(positions, targets)
		if err != nil {
			return nil, "", err
		}
		for i, pt := range positions {
			residuals[i] = rt.Apply(pt).Sub(targets[i]).Norm()
		}
		return residuals, fmt.Sprintf("Registration residuals (rms %.4g)", rt.Residual), nil
	}
	model, err := fit.FitPlane(positions, conv)
	if err != nil {
		return nil, "", err
	}
	for i, pt := range positions {
		residuals[i] = model.Residual(pt, conv)
	}
	return residuals, fmt.Sprintf("Plane residuals, %s", model), nil
}

// Residuals plots SampleResiduals against the sample index.
func Residuals(path string, ss samples.SampleSet, conv fit.ErrorConvention) error {
	residuals, title, err := SampleResiduals(ss, conv)
	if err != nil {
		return err
	}
	pts := make(plotter.XYs, len(residuals))
	for i, r := range residuals {
		pts[i] = plotter.XY{X: float64(i), Y: r}
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Error"
	if ss.Schema() == samples.SchemaTracker {
		p.Y.Label.Text = "Distance (mm)"
	}
	if err := addScatter(p, "", pts, pointColor, vg.Points(2)); err != nil {
		return err
	}
	return save(p, path)
}

// Histogram prints a text histogram of values to w.
func Histogram(w io.Writer, values []float64, bins int) error {
	if len(values) == 0 {
		return nil
	}
	return histogram.Fprintf(w, histogram.Hist(bins, values), histogram.Linear(40), func(v float64) string {
		return fmt.Sprintf("%.3g", v)
	})
}

func addScatter(p *plot.Plot, name string, pts plotter.XYs, c color.Color, radius vg.Length) error {
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrapf(err, "scatter %q", name)
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = radius
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(s)
	if name != "" {
		p.Legend.Add(name, s)
	}
	return nil
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(width, height, path); err != nil {
		return errors.Wrapf(err, "cannot save plot %q", path)
	}
	return nil
}
