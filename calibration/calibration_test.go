package calibration

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	armfake "github.com/dvrk-tools/palpcal/components/arm/fake"
	trackerfake "github.com/dvrk-tools/palpcal/components/tracker/fake"
	"github.com/dvrk-tools/palpcal/configpatch"
	"github.com/dvrk-tools/palpcal/fit"
	"github.com/dvrk-tools/palpcal/grid"
	"github.com/dvrk-tools/palpcal/kinematics"
	"github.com/dvrk-tools/palpcal/logging"
	"github.com/dvrk-tools/palpcal/offsetsweep"
	"github.com/dvrk-tools/palpcal/palpation"
	"github.com/dvrk-tools/palpcal/samples"
	"github.com/dvrk-tools/palpcal/spatialmath"
	"github.com/dvrk-tools/palpcal/testutils"
	"github.com/dvrk-tools/palpcal/testutils/inject"
)

var started = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func newSimArm(t *testing.T, offset float64) *armfake.Arm {
	t.Helper()
	conf := armfake.DefaultConfig()
	conf.JointOffset = offset * 1000
	a, err := armfake.NewArm(conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return a
}

func newGrid(t *testing.T, n int) *grid.Grid {
	t.Helper()
	down := spatialmath.RotationAboutX(math.Pi)
	g, err := grid.New(
		spatialmath.NewPose(r3.Vector{X: -30, Y: -30, Z: -105}, down),
		spatialmath.NewPose(r3.Vector{X: 30, Y: -30, Z: -105}, down),
		spatialmath.NewPose(r3.Vector{X: -30, Y: 30, Z: -105}, down),
		n,
	)
	test.That(t, err, test.ShouldBeNil)
	return g
}

func fineDetector(t *testing.T) *palpation.Detector {
	t.Helper()
	cfg := palpation.DefaultConfig()
	cfg.FineStepMM = 0.01
	cfg.MaxSteps = 200
	det, err := palpation.NewDetector(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return det
}

func TestRunFolder(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	run, err := NewRun(dataDir, "PSM1", started, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, run.Dir, test.ShouldEqual, filepath.Join(dataDir, "PSM1_2024-03-09_14-05-07"))

	run.Set("schema", samples.SchemaPlane)
	run.Set("note", "two  words")
	run.Set("schema", samples.SchemaTracker)
	v, ok := run.Get("schema")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, "tracker")
	test.That(t, run.Metadata(), test.ShouldContainSubstring, "arm=PSM1")
	test.That(t, run.Metadata(), test.ShouldContainSubstring, "note=two_words")

	test.That(t, run.WriteInfo(), test.ShouldBeNil)
	info := testutils.ReadFile(t, filepath.Join(run.Dir, InfoFile))
	test.That(t, info, test.ShouldStartWith, "arm: PSM1\nrun_id: "+run.ID.String()+"\nstarted: 2024-03-09T14:05:07Z\n")
	test.That(t, info, test.ShouldEndWith, "schema: tracker\nnote: two words\n")

	first, err := run.Path("plane.csv")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.WriteFile(first, nil, 0o600), test.ShouldBeNil)
	second, err := run.Path("plane.csv")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, filepath.Base(second), test.ShouldEqual, "plane_1.csv")

	// a second run in the same second collides
	_, err = NewRun(dataDir, "PSM1", started, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlaneCalibrationRecoversOffset(t *testing.T) {
	const offset = 0.004
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	a := newSimArm(t, offset)
	run, err := NewRun(t.TempDir(), a.Name(), started, logger)
	test.That(t, err, test.ShouldBeNil)

	rec, err := RecordPlane(ctx, a, newGrid(t, 4), fineDetector(t), run, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rec.Samples.Len(), test.ShouldEqual, 16)
	test.That(t, rec.Samples.Schema(), test.ShouldEqual, samples.SchemaPlane)
	test.That(t, rec.Skipped, test.ShouldEqual, 0)
	test.That(t, rec.Depth.Min, test.ShouldBeGreaterThan, 0)
	test.That(t, rec.Depth.Max, test.ShouldBeLessThanOrEqualTo, 1+1e-6)

	traces, err := filepath.Glob(filepath.Join(run.Dir, "palpation_*.csv"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(traces), test.ShouldEqual, 16)
	info := testutils.ReadFile(t, filepath.Join(run.Dir, InfoFile))
	test.That(t, info, test.ShouldContainSubstring, "samples: 16\n")
	test.That(t, info, test.ShouldContainSubstring, "grid_samples: 4\n")

	loaded, err := samples.LoadCSV(rec.File)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.Len(), test.ShouldEqual, 16)

	xml := testutils.WriteTempFile(t, "psm.xml", `<Config><Robot><Actuator ActuatorID="2"><AnalogIn>`+
		`<VoltsToPosSI Offset="0.25"/></AnalogIn></Actuator></Robot></Config>`)
	var phases []string
	analysis, err := Analyze(loaded, AnalyzeOptions{
		Forward:     a.Kinematics(),
		Params:      offsetsweep.DefaultParams(),
		Convention:  fit.PointToPlane,
		OutputDir:   run.Dir,
		PatchFile:   xml,
		PatchTarget: configpatch.DefaultTarget(),
		Progress: func(phase string, done, total int) {
			if done == total {
				phases = append(phases, phase)
			}
		},
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, phases, test.ShouldResemble, []string{offsetsweep.PhaseCoarse, offsetsweep.PhaseFine})
	test.That(t, analysis.Report.Result.Value, test.ShouldAlmostEqual, offset, 1e-3)
	test.That(t, analysis.Curve(), test.ShouldResemble, analysis.Report.Fine)
	test.That(t, filepath.Base(analysis.CurveFile), test.ShouldEqual, CurveFile)
	test.That(t, testutils.ReadFile(t, analysis.CurveFile), test.ShouldStartWith, "offset,error\n")
	_, err = os.Stat(analysis.PlotFile)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, filepath.Base(analysis.CoarseCurveFile), test.ShouldEqual, CoarseCurveFile)
	coarse, err := offsetsweep.LoadCurveCSV(analysis.CoarseCurveFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(coarse), test.ShouldEqual, len(analysis.Report.Coarse))
	_, err = os.Stat(analysis.CoarsePlotFile)
	test.That(t, err, test.ShouldBeNil)

	saved, err := offsetsweep.LoadCurveCSV(analysis.CurveFile)
	test.That(t, err, test.ShouldBeNil)
	again, err := AnalyzeCurve(saved, AnalyzeOptions{Params: offsetsweep.DefaultParams()}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again.Report.Result.Value, test.ShouldEqual, analysis.Report.Result.Value)
	test.That(t, again.Patch, test.ShouldBeNil)

	test.That(t, analysis.Patch, test.ShouldNotBeNil)
	test.That(t, analysis.Patch.Old, test.ShouldEqual, 0.25)
	written, err := configpatch.Read(xml, configpatch.DefaultTarget())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, written, test.ShouldAlmostEqual, 0.25+analysis.Report.Result.Value, 1e-12)
}

func TestPlaneCalibrationContactFailure(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	conf := armfake.DefaultConfig()
	conf.SurfaceZ = -300
	a, err := armfake.NewArm(conf, logger)
	test.That(t, err, test.ShouldBeNil)
	run, err := NewRun(t.TempDir(), "PSM1", started, logger)
	test.That(t, err, test.ShouldBeNil)

	det, err := palpation.NewDetector(palpation.DefaultConfig(), logger)
	test.That(t, err, test.ShouldBeNil)
	_, err = RecordPlane(ctx, a, newGrid(t, 2), det, run, logger)
	test.That(t, err, test.ShouldNotBeNil)
	var notFound *palpation.ContactNotFoundError
	test.That(t, errors.As(err, &notFound), test.ShouldBeTrue)
	test.That(t, notFound.Row, test.ShouldEqual, 0)
	test.That(t, notFound.Col, test.ShouldEqual, 0)
	test.That(t, notFound.Phase, test.ShouldEqual, palpation.CoarseDescend)
	test.That(t, err.Error(), test.ShouldStartWith, "target 1 of 4")

	_, err = os.Stat(filepath.Join(run.Dir, PlaneSamplesFile))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestRecordPlaneHomeFailure(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := inject.NewArm("broken")
	a.HomeFunc = func(ctx context.Context) error { return errors.New("estop") }
	run, err := NewRun(t.TempDir(), "broken", started, logger)
	test.That(t, err, test.ShouldBeNil)
	_, err = RecordPlane(context.Background(), a, newGrid(t, 2), fineDetector(t), run, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldEqual, "homing: estop")
}

func TestTrackerCalibrationRecoversOffset(t *testing.T) {
	const offset = -0.002
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	a := newSimArm(t, offset)
	trackerPose := spatialmath.NewPose(r3.Vector{X: 200, Y: 50, Z: 800}, spatialmath.RotationAboutY(0.4))
	tr := trackerfake.NewTracker(a.ToolPosition, trackerPose, 5)

	var scan []kinematics.JointVector
	for _, q0 := range []float64{-0.3, 0, 0.3} {
		for _, q1 := range []float64{-0.2, 0.2} {
			for _, q2 := range []float64{100, 140} {
				scan = append(scan, kinematics.JointVector{q0, q1, q2, 0, 0, 0})
			}
		}
	}
	run, err := NewRun(t.TempDir(), a.Name(), started, logger)
	test.That(t, err, test.ShouldBeNil)

	rec, err := RecordTracker(ctx, a, tr, scan, 0, run, logger)
	test.That(t, err, test.ShouldBeNil)
	// reads 5 and 10 see no marker
	test.That(t, rec.Skipped, test.ShouldEqual, 2)
	test.That(t, rec.Samples.Len(), test.ShouldEqual, 10)
	test.That(t, rec.Samples.Schema(), test.ShouldEqual, samples.SchemaTracker)
	test.That(t, filepath.Base(rec.File), test.ShouldEqual, TrackerSamplesFile)
	info := testutils.ReadFile(t, filepath.Join(run.Dir, InfoFile))
	test.That(t, info, test.ShouldContainSubstring, "skipped: 2\n")
	test.That(t, info, test.ShouldContainSubstring, "settle_bad_reads: 0\n")

	analysis, err := Analyze(rec.Samples, AnalyzeOptions{
		Forward: a.Kinematics(),
		Params:  offsetsweep.DefaultParams(),
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, analysis.Report.Result.Value, test.ShouldAlmostEqual, offset, 1e-3)
	test.That(t, analysis.CurveFile, test.ShouldBeEmpty)
	test.That(t, analysis.Patch, test.ShouldBeNil)
}

func TestRecordTrackerSettles(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	a := newSimArm(t, 0)
	tr := trackerfake.NewTracker(a.ToolPosition, nil, 3)
	scan := []kinematics.JointVector{{0, 0, 100}, {0.1, 0, 100}, {0, 0.1, 100}}
	run, err := NewRun(t.TempDir(), a.Name(), started, logger)
	test.That(t, err, test.ShouldBeNil)

	// read 3 is a discarded settle read, read 6 is the third sample
	rec, err := RecordTracker(ctx, a, tr, scan, 1, run, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rec.Skipped, test.ShouldEqual, 1)
	test.That(t, rec.Samples.Len(), test.ShouldEqual, 2)
	test.That(t, tr.BadSamples(), test.ShouldEqual, 2)
	info := testutils.ReadFile(t, filepath.Join(run.Dir, InfoFile))
	test.That(t, info, test.ShouldContainSubstring, "skipped: 1\n")
	test.That(t, info, test.ShouldContainSubstring, "settle_bad_reads: 1\n")
}

func TestSinglePalpation(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	a := newSimArm(t, 0)
	test.That(t, a.Home(ctx), test.ShouldBeNil)
	test.That(t, a.MoveToPosition(ctx, spatialmath.NewPoseFromPoint(r3.Vector{X: 5, Y: 5, Z: -105})), test.ShouldBeNil)
	run, err := NewRun(t.TempDir(), a.Name(), started, logger)
	test.That(t, err, test.ShouldBeNil)

	cfg := palpation.DefaultConfig()
	cfg.ForceThreshold = 0.45
	det, err := palpation.NewDetector(cfg, logger)
	test.That(t, err, test.ShouldBeNil)

	res, err := SinglePalpation(ctx, a, det, run, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Result.Sample.Pose.Point().Z, test.ShouldBeBetween, -110.6, -110.4)
	test.That(t, res.SurfaceZ, test.ShouldAlmostEqual, -110, 1e-4)
	test.That(t, filepath.Base(res.TraceFile), test.ShouldEqual, SinglePalpationFile)
	test.That(t, filepath.Base(res.PlotFile), test.ShouldEqual, "single_palpation.png")

	trace, err := palpation.LoadTraceCSV(res.TraceFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(trace), test.ShouldEqual, len(res.Result.Trace))
	info := testutils.ReadFile(t, filepath.Join(run.Dir, InfoFile))
	test.That(t, info, test.ShouldContainSubstring, "schema: single_palpation\n")
	test.That(t, strings.Count(info, "contact_z_mm: "), test.ShouldEqual, 1)
}

func TestAnalyzeCurve(t *testing.T) {
	logger := logging.NewTestLogger(t)
	var curve offsetsweep.Curve
	for k := 0; k <= 40; k++ {
		x := -0.02 + 0.001*float64(k)
		curve = append(curve, offsetsweep.Point{Offset: x, Error: (x-0.0042)*(x-0.0042) + 0.5})
	}
	xml := testutils.WriteTempFile(t, "psm.xml", `<Config><Robot><Actuator ActuatorID="2"><AnalogIn>`+
		`<VoltsToPosSI Offset="0.25"/></AnalogIn></Actuator></Robot></Config>`)

	params := offsetsweep.DefaultParams()
	params.Smooth = true
	analysis, err := AnalyzeCurve(curve, AnalyzeOptions{
		Params:      params,
		OutputDir:   t.TempDir(),
		PatchFile:   xml,
		PatchTarget: configpatch.DefaultTarget(),
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, analysis.Report.Result.Smoothed, test.ShouldBeTrue)
	test.That(t, analysis.Report.Result.Value, test.ShouldAlmostEqual, 0.0042, 1e-7)
	test.That(t, analysis.Curve(), test.ShouldResemble, curve)
	test.That(t, analysis.CurveFile, test.ShouldBeEmpty)
	test.That(t, analysis.Patch, test.ShouldNotBeNil)
	written, err := configpatch.Read(xml, configpatch.DefaultTarget())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, written, test.ShouldAlmostEqual, 0.25+0.0042, 1e-7)

	params.Smooth = false
	analysis, err = AnalyzeCurve(curve, AnalyzeOptions{Params: params}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, analysis.Report.Result.Smoothed, test.ShouldBeFalse)
	test.That(t, analysis.Report.Result.Value, test.ShouldAlmostEqual, 0.004, 1e-12)

	_, err = AnalyzeCurve(nil, AnalyzeOptions{Params: params}, logger)
	test.That(t, err, test.ShouldBeError, offsetsweep.ErrEmptyCurve)
}

func TestAnalyzeErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	model, err := kinematics.MakePSMModel()
	test.That(t, err, test.ShouldBeNil)

	empty, err := samples.NewSampleSet(samples.SchemaPlane, "", nil)
	test.That(t, err, test.ShouldBeNil)
	_, err = Analyze(empty, AnalyzeOptions{Forward: model, Params: offsetsweep.DefaultParams()}, logger)
	test.That(t, err, test.ShouldWrap, samples.ErrEmptySampleSet)

	params := offsetsweep.DefaultParams()
	params.Scale = 0
	_, err = Analyze(empty, AnalyzeOptions{Forward: model, Params: params}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
