package cli

import (
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/dvrk-tools/palpcal/calibration"
	"github.com/dvrk-tools/palpcal/logging"
	"github.com/dvrk-tools/palpcal/offsetsweep"
	"github.com/dvrk-tools/palpcal/samples"
)

// AnalyzeAction sweeps the joint offset over a samples file, or picks it
// from a saved curve with --curve.
func AnalyzeAction(c *cli.Context) error {
	if c.IsSet(analyzeFlagCurve) {
		return analyzeCurve(c)
	}
	if c.Args().Len() != 1 {
		return errors.New("analyze needs exactly one samples file")
	}
	input := c.Args().First()
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ss, err := samples.LoadCSV(input)
	if err != nil {
		return err
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}

	opts := calibration.AnalyzeOptions{
		Forward:     model,
		Params:      cfg.Sweep,
		Convention:  cfg.PlaneConvention(),
		PatchFile:   c.String(analyzeFlagWrite),
		PatchTarget: cfg.Patch,
		Progress:    progressLogger(logger),
	}
	switch {
	case c.Bool(analyzeFlagNoOutput):
	case c.String(analyzeFlagOutput) != "":
		opts.OutputDir = c.String(analyzeFlagOutput)
	default:
		opts.OutputDir = filepath.Dir(input)
	}

	analysis, err := calibration.Analyze(ss, opts, logger)
	if err != nil {
		return err
	}
	res := analysis.Report.Result
	curve := analysis.Curve()
	printTable(c.App.Writer,
		table.Row{"Samples", "Schema", "Candidates", "Curve minimum", "Error", "Smoothed", "Offset correction"},
		table.Row{
			ss.Len(), ss.Schema(), len(analysis.Report.Coarse) + len(analysis.Report.Fine),
			ff(curve[res.CurveMinimumIndex].Offset), ff(res.MinimumError), res.Smoothed, ff(res.Value),
		})
	if analysis.CurveFile != "" {
		printf(c.App.Writer, "Offset curve saved to %s (plot %s)", analysis.CurveFile, analysis.PlotFile)
	}
	if analysis.CoarseCurveFile != "" {
		printf(c.App.Writer, "Coarse curve saved to %s (plot %s)", analysis.CoarseCurveFile, analysis.CoarsePlotFile)
	}
	printCorrection(c, opts.PatchFile, analysis)
	return nil
}

func analyzeCurve(c *cli.Context) error {
	if c.Args().Len() != 0 {
		return errors.Errorf("analyze --%s takes no samples file", analyzeFlagCurve)
	}
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	curve, err := offsetsweep.LoadCurveCSV(c.String(analyzeFlagCurve))
	if err != nil {
		return err
	}
	opts := calibration.AnalyzeOptions{
		Params:      cfg.Sweep,
		PatchFile:   c.String(analyzeFlagWrite),
		PatchTarget: cfg.Patch,
	}
	analysis, err := calibration.AnalyzeCurve(curve, opts, logger)
	if err != nil {
		return err
	}
	res := analysis.Report.Result
	printTable(c.App.Writer,
		table.Row{"Candidates", "Curve minimum", "Error", "Smoothed", "Offset correction"},
		table.Row{len(curve), ff(curve[res.CurveMinimumIndex].Offset), ff(res.MinimumError), res.Smoothed, ff(res.Value)})
	printCorrection(c, opts.PatchFile, analysis)
	return nil
}

func printCorrection(c *cli.Context, patchFile string, analysis *calibration.Analysis) {
	if analysis.Patch != nil {
		printf(c.App.Writer, "Wrote offset to %s: %s", patchFile, analysis.Patch)
		return
	}
	printf(c.App.Writer, "Offset correction: %s", ff(analysis.Report.Result.Value))
}

// progressLogger logs every tenth of each sweep phase at debug level.
func progressLogger(logger logging.Logger) offsetsweep.Progress {
	return func(phase string, done, total int) {
		step := max(total/10, 1)
		if done%step == 0 || done == total {
			logger.Debugw("sweeping", "phase", phase, "done", done, "total", total)
		}
	}
}
