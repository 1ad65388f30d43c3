package plotting

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/dvrk-tools/palpcal/fit"
	"github.com/dvrk-tools/palpcal/kinematics"
	"github.com/dvrk-tools/palpcal/offsetsweep"
	"github.com/dvrk-tools/palpcal/palpation"
	"github.com/dvrk-tools/palpcal/samples"
	"github.com/dvrk-tools/palpcal/spatialmath"
)

func checkPNG(t *testing.T, path string) {
	t.Helper()
	//nolint:gosec
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(data), test.ShouldBeGreaterThan, 8)
	test.That(t, string(data[1:4]), test.ShouldEqual, "PNG")
}

func TestCurve(t *testing.T) {
	var curve offsetsweep.Curve
	for i := 0; i < 50; i++ {
		x := -0.025 + float64(i)*0.001
		curve = append(curve, offsetsweep.Point{Offset: x, Error: x*x + 0.1})
	}
	res, err := offsetsweep.Smooth(curve, 2)
	test.That(t, err, test.ShouldBeNil)

	path := filepath.Join(t.TempDir(), "offset_v_error.png")
	test.That(t, Curve(path, curve, res), test.ShouldBeNil)
	checkPNG(t, path)

	test.That(t, Curve(path, nil, res), test.ShouldBeError, offsetsweep.ErrEmptyCurve)
}

func TestTrace(t *testing.T) {
	var trace palpation.Trace
	for i := 0; i < 10; i++ {
		z := -100 - float64(i)*0.1
		trace = append(trace, palpation.Step{
			Phase: palpation.FineDescend,
			Pose:  spatialmath.NewPoseFromPoint(r3.Vector{Z: z}),
			Force: math.Max(0, -100.5-z),
		})
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "palpation.png")
	test.That(t, Trace(path, trace, -100.5), test.ShouldBeNil)
	checkPNG(t, path)

	path = filepath.Join(dir, "palpation_nosurface.png")
	test.That(t, Trace(path, trace, math.NaN()), test.ShouldBeNil)
	checkPNG(t, path)

	test.That(t, Trace(path, nil, 0), test.ShouldBeError, palpation.ErrShortTrace)
}

func TestResiduals(t *testing.T) {
	var plane, tracked []samples.Sample
	offset := r3.Vector{X: 5, Y: -3, Z: 10}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			pt := r3.Vector{X: float64(i) * 10, Y: float64(j) * 10, Z: -100 + 0.01*float64(i*j)}
			plane = append(plane, samples.NewSample(spatialmath.NewPoseFromPoint(pt), kinematics.JointVector{}))
			tracked = append(tracked, samples.NewTrackerSample(spatialmath.NewPoseFromPoint(pt), kinematics.JointVector{}, pt.Add(offset)))
		}
	}
	dir := t.TempDir()

	ss, err := samples.NewSampleSet(samples.SchemaPlane, "", plane)
	test.That(t, err, test.ShouldBeNil)
	path := filepath.Join(dir, "plane.png")
	test.That(t, Residuals(path, ss, fit.PointToPlane), test.ShouldBeNil)
	checkPNG(t, path)

	residuals, title, err := SampleResiduals(ss, fit.PointToPlane)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(residuals), test.ShouldEqual, 9)
	test.That(t, title, test.ShouldStartWith, "Plane residuals")

	ss, err = samples.NewSampleSet(samples.SchemaTracker, "", tracked)
	test.That(t, err, test.ShouldBeNil)
	residuals, title, err = SampleResiduals(ss, fit.PointToPlane)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, title, test.ShouldStartWith, "Registration residuals")
	for _, r := range residuals {
		test.That(t, r, test.ShouldAlmostEqual, 0, 1e-9)
	}
	path = filepath.Join(dir, "tracker.png")
	test.That(t, Residuals(path, ss, fit.PointToPlane), test.ShouldBeNil)
	checkPNG(t, path)

	empty, err := samples.NewSampleSet(samples.SchemaPlane, "", nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, Residuals(path, empty, fit.PointToPlane), test.ShouldBeError, samples.ErrEmptySampleSet)
}

func TestHistogram(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, Histogram(&buf, nil, 5), test.ShouldBeNil)
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	test.That(t, Histogram(&buf, []float64{0.1, 0.2, 0.2, 0.3, 0.9}, 4), test.ShouldBeNil)
	out := buf.String()
	test.That(t, strings.Count(out, "\n"), test.ShouldEqual, 4)
	test.That(t, out, test.ShouldContainSubstring, "%")
}
