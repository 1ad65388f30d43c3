package calibration

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/dvrk-tools/palpcal/configpatch"
	"github.com/dvrk-tools/palpcal/fit"
	"github.com/dvrk-tools/palpcal/logging"
	"github.com/dvrk-tools/palpcal/offsetsweep"
	"github.com/dvrk-tools/palpcal/plotting"
	"github.com/dvrk-tools/palpcal/samples"
	"github.com/dvrk-tools/palpcal/utils"
)

// Base names of saved offset curves. The coarse curve is only saved when a
// fine pass ran.
const (
	CurveFile       = "offset_v_error.csv"
	CoarseCurveFile = "offset_v_error_coarse.csv"
)

// AnalyzeOptions configure Analyze.
type AnalyzeOptions struct {
	Forward    offsetsweep.Forward
	Params     offsetsweep.Params
	Convention fit.ErrorConvention
	// OutputDir receives the curve and its plot. Nothing is written when empty.
	OutputDir string
	// PatchFile is the XML configuration to correct. Nothing is patched when empty.
	PatchFile   string
	PatchTarget configpatch.Target
	Progress    offsetsweep.Progress
}

// Analysis is the outcome of Analyze.
type Analysis struct {
	Report          *offsetsweep.Report
	CurveFile       string
	PlotFile        string
	CoarseCurveFile string
	CoarsePlotFile  string
	Patch           *configpatch.Result
}

// Curve returns the curve the offset was chosen from.
func (a *Analysis) Curve() offsetsweep.Curve {
	if len(a.Report.Fine) > 0 {
		return a.Report.Fine
	}
	return a.Report.Coarse
}

// Analyze sweeps the joint offset over ss, saves the resulting curve and
// optionally adds the correction to a configuration document.
func Analyze(ss samples.SampleSet, opts AnalyzeOptions, logger logging.Logger) (*Analysis, error) {
	objective, err := offsetsweep.ObjectiveFor(ss, opts.Convention)
	if err != nil {
		return nil, err
	}
	opt, err := offsetsweep.NewOptimizer(opts.Forward, objective, opts.Params, logger)
	if err != nil {
		return nil, err
	}
	if opts.Progress != nil {
		opt.SetProgress(opts.Progress)
	}
	report, err := opt.Sweep(ss)
	if err != nil {
		return nil, errors.Wrap(err, "offset sweep")
	}
	out := &Analysis{Report: report}

	if opts.OutputDir != "" {
		if out.CurveFile, out.PlotFile, err = saveCurve(opts.OutputDir, CurveFile, out.Curve(), report.Result); err != nil {
			return nil, err
		}
		logger.Infow("saved offset curve", "csv", out.CurveFile, "plot", out.PlotFile)
		if len(report.Fine) > 0 {
			coarseMin, err := offsetsweep.Minimize(report.Coarse)
			if err != nil {
				return nil, err
			}
			out.CoarseCurveFile, out.CoarsePlotFile, err = saveCurve(opts.OutputDir, CoarseCurveFile, report.Coarse, coarseMin)
			if err != nil {
				return nil, err
			}
			logger.Infow("saved coarse offset curve", "csv", out.CoarseCurveFile, "plot", out.CoarsePlotFile)
		}
	}

	if out.Patch, err = patch(opts, report.Result.Value, logger); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalyzeCurve picks the offset from a saved curve, smoothing it when
// opts.Params.Smooth is set, and optionally patches opts.PatchFile. Nothing is
// swept and OutputDir is ignored.
func AnalyzeCurve(curve offsetsweep.Curve, opts AnalyzeOptions, logger logging.Logger) (*Analysis, error) {
	if err := curve.Validate(); err != nil {
		return nil, err
	}
	var (
		res offsetsweep.OffsetResult
		err error
	)
	if opts.Params.Smooth {
		res, err = offsetsweep.Smooth(curve, opts.Params.Degree)
	} else {
		res, err = offsetsweep.Minimize(curve)
	}
	if err != nil {
		return nil, err
	}
	logger.Infow("offset from saved curve", "candidates", len(curve), "offset", res.Value, "smoothed", res.Smoothed)

	out := &Analysis{Report: &offsetsweep.Report{Coarse: curve, Result: res}}
	if out.Patch, err = patch(opts, res.Value, logger); err != nil {
		return nil, err
	}
	return out, nil
}

func saveCurve(dir, name string, curve offsetsweep.Curve, res offsetsweep.OffsetResult) (string, string, error) {
	csvFile, err := utils.ChooseFilename(dir, name)
	if err != nil {
		return "", "", err
	}
	if err := curve.SaveCSV(csvFile); err != nil {
		return "", "", err
	}
	plotFile := strings.TrimSuffix(csvFile, filepath.Ext(csvFile)) + ".png"
	if err := plotting.Curve(plotFile, curve, res); err != nil {
		return "", "", err
	}
	return csvFile, plotFile, nil
}

func patch(opts AnalyzeOptions, correction float64, logger logging.Logger) (*configpatch.Result, error) {
	if opts.PatchFile == "" {
		return nil, nil
	}
	res, err := configpatch.Apply(opts.PatchFile, correction, opts.PatchTarget)
	if err != nil {
		return nil, err
	}
	logger.Infow("wrote offset", "file", opts.PatchFile, "old", res.Old, "correction", res.Correction, "new", res.New)
	return &res, nil
}
