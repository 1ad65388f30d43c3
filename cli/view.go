package cli

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/dvrk-tools/palpcal/calibration"
	"github.com/dvrk-tools/palpcal/config"
	"github.com/dvrk-tools/palpcal/fit"
	"github.com/dvrk-tools/palpcal/offsetsweep"
	"github.com/dvrk-tools/palpcal/palpation"
	"github.com/dvrk-tools/palpcal/plotting"
	"github.com/dvrk-tools/palpcal/samples"
	"github.com/dvrk-tools/palpcal/utils"
)

// ViewAction summarizes a file or run folder and saves a plot next to it.
func ViewAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("view needs exactly one file or folder")
	}
	input := c.Args().First()
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	info, err := os.Stat(input)
	if err != nil {
		return err
	}

	base := filepath.Base(input)
	switch {
	case info.IsDir():
		return viewTraces(c, input)
	case isTraceFile(base):
		row, err := viewTrace(input)
		if err != nil {
			return err
		}
		printTable(c.App.Writer, traceHeader, row)
		return nil
	case strings.HasPrefix(base, strings.TrimSuffix(calibration.CurveFile, ".csv")):
		return viewCurve(c, input, cfg)
	default:
		return viewSamples(c, input, cfg)
	}
}

var traceHeader = table.Row{"Trace", "Steps", "Surface z (mm)", "Plot"}

func isTraceFile(base string) bool {
	return strings.HasPrefix(base, "palpation") || strings.HasPrefix(base, "single_palpation")
}

func plotPath(input string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return utils.ChooseFilename(filepath.Dir(input), stem+".png")
}

func viewTraces(c *cli.Context, dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return err
	}
	files := lo.Filter(matches, func(path string, _ int) bool { return isTraceFile(filepath.Base(path)) })
	if len(files) == 0 {
		return errors.Errorf("no palpation traces in %q", dir)
	}
	rows := make([]table.Row, 0, len(files))
	for _, f := range files {
		row, err := viewTrace(f)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	printTable(c.App.Writer, traceHeader, rows...)
	return nil
}

func viewTrace(path string) (table.Row, error) {
	trace, err := palpation.LoadTraceCSV(path)
	if err != nil {
		return nil, err
	}
	surface, err := trace.SurfaceZ()
	if err != nil {
		if !errors.Is(err, palpation.ErrShortTrace) {
			return nil, err
		}
		surface = math.NaN()
	}
	out, err := plotPath(path)
	if err != nil {
		return nil, err
	}
	if err := plotting.Trace(out, trace, surface); err != nil {
		return nil, err
	}
	return table.Row{path, len(trace), ff(surface), out}, nil
}

func viewCurve(c *cli.Context, path string, cfg *config.Config) error {
	curve, err := offsetsweep.LoadCurveCSV(path)
	if err != nil {
		return err
	}
	if err := curve.Validate(); err != nil {
		return err
	}
	res, err := offsetsweep.Smooth(curve, cfg.Sweep.Degree)
	if err != nil {
		return err
	}
	out, err := plotPath(path)
	if err != nil {
		return err
	}
	if err := plotting.Curve(out, curve, res); err != nil {
		return err
	}
	rawMin := curve[res.CurveMinimumIndex]
	vertex := "none"
	if res.Smoothed {
		vertex = ff(res.Value)
	}
	printTable(c.App.Writer, table.Row{"Candidates", "Minimum offset", "Error", "Fit vertex", "Plot"},
		table.Row{len(curve), ff(rawMin.Offset), ff(rawMin.Error), vertex, out})
	return nil
}

func viewSamples(c *cli.Context, path string, cfg *config.Config) error {
	ss, err := samples.LoadCSV(path)
	if err != nil {
		return err
	}
	if err := ss.NonEmpty(); err != nil {
		return err
	}
	conv := cfg.PlaneConvention()
	out, err := plotPath(path)
	if err != nil {
		return err
	}
	if err := plotting.Residuals(out, ss, conv); err != nil {
		return err
	}
	residuals, title, err := plotting.SampleResiduals(ss, conv)
	if err != nil {
		return err
	}

	summary := table.Row{ss.Len(), ss.Schema()}
	switch ss.Schema() {
	case samples.SchemaTracker:
		targets, err := ss.TrackerPoints()
		if err != nil {
			return err
		}
		rt, err := fit.RegisterRigid(ss.Positions(), targets)
		if err != nil {
			return err
		}
		summary = append(summary, "registration", ff(rt.Residual))
	default:
		model, err := fit.FitPlane(ss.Positions(), conv)
		if err != nil {
			return err
		}
		summary = append(summary, model.String(), ff(model.RMSError))
	}
	summary = append(summary, out)
	printTable(c.App.Writer, table.Row{"Samples", "Schema", "Fit", "RMS error", "Plot"}, summary)
	if meta := ss.Metadata(); meta != "" {
		printf(c.App.Writer, "Metadata: %s", meta)
	}
	printf(c.App.Writer, "%s:", title)
	return plotting.Histogram(c.App.Writer, residuals, max(1, min(10, len(residuals)/2)))
}
