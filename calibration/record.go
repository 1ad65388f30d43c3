package calibration

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/dvrk-tools/palpcal/components/arm"
	"github.com/dvrk-tools/palpcal/components/tracker"
	"github.com/dvrk-tools/palpcal/grid"
	"github.com/dvrk-tools/palpcal/kinematics"
	"github.com/dvrk-tools/palpcal/logging"
	"github.com/dvrk-tools/palpcal/palpation"
	"github.com/dvrk-tools/palpcal/plotting"
	"github.com/dvrk-tools/palpcal/samples"
)

// Sample file names inside a run folder.
const (
	PlaneSamplesFile    = "plane.csv"
	TrackerSamplesFile  = "tracker_point_cloud.csv"
	SinglePalpationFile = "single_palpation.csv"
)

// Recording is the outcome of a recording run.
type Recording struct {
	Samples samples.SampleSet
	// File is where the samples were saved.
	File string
	// Skipped counts excluded readings.
	Skipped int
	// Depth summarizes how far below the baseline contact was felt. It is zero for tracker runs.
	Depth DepthSummary
}

// DepthSummary describes contact depths in mm.
type DepthSummary struct {
	Mean, StdDev, Min, Max float64
}

func summarizeDepths(depths []float64) (DepthSummary, error) {
	var (
		s   DepthSummary
		err error
	)
	if s.Mean, err = stats.Mean(depths); err != nil {
		return s, err
	}
	if s.StdDev, err = stats.StandardDeviation(depths); err != nil {
		return s, err
	}
	if s.Min, err = stats.Min(depths); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(depths); err != nil {
		return s, err
	}
	return s, nil
}

// RecordPlane homes the arm and palpates every grid target in order. A target
// where no contact is found ends the run with a *palpation.ContactNotFoundError.
// Each palpation's trace is saved as palpation_<row>_<col>.csv.
func RecordPlane(
	ctx context.Context,
	a arm.Arm,
	g *grid.Grid,
	det *palpation.Detector,
	run *Run,
	logger logging.Logger,
) (*Recording, error) {
	run.Set("schema", samples.SchemaPlane)
	run.Set("grid_samples", g.N())
	if err := a.Home(ctx); err != nil {
		return nil, errors.Wrap(err, "homing")
	}

	rec := samples.NewRecorder(samples.SchemaPlane, run.Metadata(), logger)
	depths := make([]float64, 0, g.Len())
	for k, target := range g.All() {
		res, err := det.PalpateTarget(ctx, a, target)
		if err != nil {
			return nil, errors.Wrapf(err, "target %d of %d", k+1, g.Len())
		}
		tracePath, err := run.Path(fmt.Sprintf("palpation_%d_%d.csv", res.Row, res.Col))
		if err != nil {
			return nil, err
		}
		if err := res.Trace.SaveCSV(tracePath); err != nil {
			return nil, err
		}
		if err := rec.Append(res.Sample); err != nil {
			return nil, err
		}
		depths = append(depths, res.Depth)
		logger.Infow("palpated", "target", k+1, "of", g.Len(), "row", res.Row, "col", res.Col, "depth", res.Depth)
	}

	recording, err := finishRecording(run, rec, PlaneSamplesFile)
	if err != nil {
		return nil, err
	}
	if recording.Depth, err = summarizeDepths(depths); err != nil {
		return nil, err
	}
	run.Set("depth_mean_mm", recording.Depth.Mean)
	run.Set("depth_stddev_mm", recording.Depth.StdDev)
	return recording, run.WriteInfo()
}

// RecordTracker homes the arm and visits every joint vector of scan, pairing
// the arm's position with the tracker's. Bad tracker readings are skipped and
// counted; the scan continues.
func RecordTracker(
	ctx context.Context,
	a arm.Arm,
	tr tracker.Tracker,
	scan []kinematics.JointVector,
	settle int,
	run *Run,
	logger logging.Logger,
) (*Recording, error) {
	run.Set("schema", samples.SchemaTracker)
	run.Set("scan_size", len(scan))
	if err := a.Home(ctx); err != nil {
		return nil, errors.Wrap(err, "homing")
	}

	rec := samples.NewRecorder(samples.SchemaTracker, run.Metadata(), logger)
	var settleBad int
	for k, q := range scan {
		if err := a.MoveToJointPositions(ctx, q); err != nil {
			return nil, errors.Wrapf(err, "scan position %d of %d", k+1, len(scan))
		}
		for range settle {
			_, err := tr.CurrentPosition(ctx)
			if errors.Is(err, tracker.ErrBadSample) {
				settleBad++
				continue
			}
			if err != nil {
				return nil, err
			}
		}
		seen, err := tr.CurrentPosition(ctx)
		if errors.Is(err, tracker.ErrBadSample) {
			rec.Skip(errors.Wrapf(err, "scan position %d", k+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		pose, err := a.EndPosition(ctx)
		if err != nil {
			return nil, err
		}
		joints, err := a.JointPositions(ctx)
		if err != nil {
			return nil, err
		}
		if err := rec.Append(samples.NewTrackerSample(pose, joints, seen)); err != nil {
			return nil, err
		}
	}
	recording, err := finishRecording(run, rec, TrackerSamplesFile)
	if err != nil {
		return nil, err
	}
	// skipped counts scan positions; settle reads are discarded either way
	run.Set("settle_bad_reads", settleBad)
	logger.Infow("tracker recording done",
		"skipped", recording.Skipped, "settle_bad_reads", settleBad, "tracker_bad_samples", tr.BadSamples())
	return recording, run.WriteInfo()
}

func finishRecording(run *Run, rec *samples.Recorder, name string) (*Recording, error) {
	ss := rec.Snapshot()
	run.Set("samples", ss.Len())
	run.Set("skipped", rec.Skipped())
	path, err := run.Path(name)
	if err != nil {
		return nil, err
	}
	if err := samples.SaveCSV(path, ss); err != nil {
		return nil, err
	}
	return &Recording{Samples: ss, File: path, Skipped: rec.Skipped()}, nil
}

// Palpation is the outcome of a single palpation.
type Palpation struct {
	Result *palpation.Result
	// SurfaceZ is the height where the force regression crosses zero, NaN
	// when the trace holds too few contact readings.
	SurfaceZ  float64
	TraceFile string
	PlotFile  string
}

// SinglePalpation palpates below the arm's current position and saves the
// trace along with a plot of it.
func SinglePalpation(
	ctx context.Context,
	a arm.Arm,
	det *palpation.Detector,
	run *Run,
	logger logging.Logger,
) (*Palpation, error) {
	start, err := a.EndPosition(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading start position")
	}
	res, err := det.Palpate(ctx, a, start)
	if err != nil {
		return nil, err
	}
	out := &Palpation{Result: res, SurfaceZ: math.NaN()}
	if out.TraceFile, err = run.Path(SinglePalpationFile); err != nil {
		return nil, err
	}
	if err := res.Trace.SaveCSV(out.TraceFile); err != nil {
		return nil, err
	}

	z, err := res.Trace.SurfaceZ()
	switch {
	case errors.Is(err, palpation.ErrShortTrace):
		logger.Warnw("cannot estimate surface", "error", err, "steps", len(res.Trace))
	case err != nil:
		return nil, err
	default:
		out.SurfaceZ = z
	}

	if out.PlotFile, err = run.Path("single_palpation.png"); err != nil {
		return nil, err
	}
	if err := plotting.Trace(out.PlotFile, res.Trace, out.SurfaceZ); err != nil {
		return nil, err
	}

	fine := lo.CountBy(res.Trace, func(s palpation.Step) bool { return s.Phase == palpation.FineDescend })
	run.Set("schema", "single_palpation")
	run.Set("contact_z_mm", res.Sample.Pose.Point().Z)
	run.Set("depth_mm", res.Depth)
	run.Set("fine_steps", fine)
	if !math.IsNaN(out.SurfaceZ) {
		run.Set("surface_z_mm", out.SurfaceZ)
	}
	return out, run.WriteInfo()
}
