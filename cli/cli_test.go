package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/dvrk-tools/palpcal/calibration"
	"github.com/dvrk-tools/palpcal/configpatch"
	"github.com/dvrk-tools/palpcal/testutils"
	"github.com/dvrk-tools/palpcal/utils"
)

type testApp struct {
	out, errOut bytes.Buffer
	clock       *clock.Mock
}

func (ta *testApp) run(t *testing.T, args ...string) error {
	t.Helper()
	ta.out.Reset()
	ta.errOut.Reset()
	if ta.clock == nil {
		ta.clock = clock.NewMock()
	}
	app := newApp(&ta.out, &ta.errOut, ta.clock)
	app.Reader = strings.NewReader("\n")
	return app.RunContext(context.Background(), append([]string{"palpcal"}, args...))
}

// runDir returns the only run folder in dataDir.
func runDir(t *testing.T, dataDir string) string {
	t.Helper()
	entries, err := os.ReadDir(dataDir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 1)
	return filepath.Join(dataDir, entries[0].Name())
}

func TestRecordPlaneAndAnalyze(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := testutils.WriteTempFile(t, "palpcal.json", `{
		"arm": "PSM2",
		"data_dir": "`+dataDir+`",
		"sim": {"offset": 0.002}
	}`)
	var ta testApp

	err := ta.run(t, "--config", cfgPath, "record", "plane", "--virtual", "--samples", "3")
	test.That(t, err, test.ShouldBeNil)
	dir := runDir(t, dataDir)
	test.That(t, filepath.Base(dir), test.ShouldStartWith, "PSM2_")
	samplesFile := filepath.Join(dir, calibration.PlaneSamplesFile)
	test.That(t, utils.FileExists(samplesFile), test.ShouldBeTrue)
	test.That(t, ta.out.String(), test.ShouldContainSubstring, "analyze "+samplesFile)
	info := testutils.ReadFile(t, filepath.Join(dir, calibration.InfoFile))
	test.That(t, info, test.ShouldContainSubstring, "virtual_offset: 0.002\n")

	xml := testutils.WriteTempFile(t, "psm2.xml", `<Config><Robot><Actuator ActuatorID="2"><AnalogIn>`+
		`<VoltsToPosSI Offset="0.5"/></AnalogIn></Actuator></Robot></Config>`)
	err = ta.run(t, "--config", cfgPath, "analyze", samplesFile, "--write", xml)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ta.out.String(), test.ShouldContainSubstring, "Wrote offset to "+xml)
	test.That(t, utils.FileExists(filepath.Join(dir, calibration.CurveFile)), test.ShouldBeTrue)
	test.That(t, utils.FileExists(filepath.Join(dir, "offset_v_error.png")), test.ShouldBeTrue)

	written, err := configpatch.Read(xml, configpatch.DefaultTarget())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, written, test.ShouldNotEqual, 0.5)
	test.That(t, utils.FileExists(filepath.Join(dir, calibration.CoarseCurveFile)), test.ShouldBeTrue)

	curveFile := filepath.Join(dir, calibration.CurveFile)
	err = ta.run(t, "--config", cfgPath, "analyze", "--curve", curveFile, "--write", xml)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ta.out.String(), test.ShouldContainSubstring, "Wrote offset to "+xml)
	rewritten, err := configpatch.Read(xml, configpatch.DefaultTarget())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rewritten-written, test.ShouldAlmostEqual, written-0.5, 1e-12)

	err = ta.run(t, "--config", cfgPath, "analyze", "--curve", curveFile, samplesFile)
	test.That(t, err, test.ShouldNotBeNil)

	err = ta.run(t, "--config", cfgPath, "view", filepath.Join(dir, calibration.CurveFile))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ta.out.String(), test.ShouldContainSubstring, "Minimum offset")

	err = ta.run(t, "--config", cfgPath, "view", samplesFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ta.out.String(), test.ShouldContainSubstring, "plane")
	test.That(t, ta.out.String(), test.ShouldContainSubstring, "Plane residuals")
	test.That(t, utils.FileExists(filepath.Join(dir, "plane.png")), test.ShouldBeTrue)

	err = ta.run(t, "--config", cfgPath, "view", dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.Count(ta.out.String(), "palpation_"), test.ShouldBeGreaterThanOrEqualTo, 9)
}

func TestAnalyzeNoOutput(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv(utils.DataDirEnvVar, dataDir)
	var ta testApp
	test.That(t, ta.run(t, "record", "plane", "--virtual", "--samples", "2"), test.ShouldBeNil)
	dir := runDir(t, dataDir)

	err := ta.run(t, "analyze", "--no-output", "--smooth", filepath.Join(dir, calibration.PlaneSamplesFile))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ta.out.String(), test.ShouldContainSubstring, "Offset correction: ")
	test.That(t, utils.FileExists(filepath.Join(dir, calibration.CurveFile)), test.ShouldBeFalse)
}

func TestRecordTrackerVirtual(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := testutils.WriteTempFile(t, "palpcal.json", `{
		"data_dir": "`+dataDir+`",
		"tracker": {"joints": [[-0.3, 0.3], [-0.2, 0.2], [100, 140], [0], [0], [0]]},
		"sim": {"offset": 0.001, "tracker_drop_every": 4}
	}`)
	var ta testApp
	err := ta.run(t, "--config", cfgPath, "record", "tracker", "--virtual", "--arm", "PSM3")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ta.errOut.String(), test.ShouldContainSubstring, "2 tracker readings were unusable")

	dir := runDir(t, dataDir)
	test.That(t, filepath.Base(dir), test.ShouldStartWith, "PSM3_")
	samplesFile := filepath.Join(dir, calibration.TrackerSamplesFile)
	test.That(t, utils.FileExists(samplesFile), test.ShouldBeTrue)

	err = ta.run(t, "--config", cfgPath, "analyze", samplesFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ta.out.String(), test.ShouldContainSubstring, "tracker")
}

func TestRecordSingleVirtual(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv(utils.DataDirEnvVar, dataDir)
	var ta testApp
	test.That(t, ta.run(t, "record", "single", "--virtual"), test.ShouldBeNil)
	dir := runDir(t, dataDir)
	trace := filepath.Join(dir, calibration.SinglePalpationFile)
	test.That(t, utils.FileExists(trace), test.ShouldBeTrue)

	test.That(t, ta.run(t, "view", trace), test.ShouldBeNil)
	test.That(t, ta.out.String(), test.ShouldContainSubstring, "Surface z")
}

func TestRecordRunFolders(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv(utils.DataDirEnvVar, dataDir)
	ta := testApp{clock: clock.NewMock()}
	test.That(t, ta.run(t, "record", "single", "--virtual"), test.ShouldBeNil)

	err := ta.run(t, "record", "single", "--virtual")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exists")

	ta.clock.Add(time.Second)
	test.That(t, ta.run(t, "record", "single", "--virtual"), test.ShouldBeNil)
	entries, err := os.ReadDir(dataDir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 2)
}

func TestLogLevel(t *testing.T) {
	t.Setenv(utils.DataDirEnvVar, t.TempDir())
	var ta testApp
	test.That(t, ta.run(t, "record", "plane", "--virtual", "--samples", "2"), test.ShouldBeNil)
	test.That(t, ta.errOut.String(), test.ShouldContainSubstring, "palpated")

	ta.clock.Add(time.Second)
	test.That(t, ta.run(t, "--log-level", "warn", "record", "plane", "--virtual", "--samples", "2"), test.ShouldBeNil)
	test.That(t, ta.errOut.String(), test.ShouldNotContainSubstring, "palpated")

	ta.clock.Add(time.Second)
	test.That(t, ta.run(t, "--log-level", "warn", "--debug", "record", "plane", "--virtual", "--samples", "2"), test.ShouldBeNil)
	test.That(t, ta.errOut.String(), test.ShouldContainSubstring, "DEBUG")

	err := ta.run(t, "--log-level", "loud", "record", "plane", "--virtual")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown log level")
}

func TestRecordNeedsHardware(t *testing.T) {
	t.Setenv(utils.DataDirEnvVar, t.TempDir())
	var ta testApp
	err := ta.run(t, "record", "plane", "--arm", "PSM9")
	test.That(t, err, test.ShouldWrap, ErrNoHardware)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"PSM9"`)
}

func TestArgumentErrors(t *testing.T) {
	var ta testApp
	test.That(t, ta.run(t, "analyze"), test.ShouldNotBeNil)
	test.That(t, ta.run(t, "view"), test.ShouldNotBeNil)
	test.That(t, ta.run(t, "view", filepath.Join(t.TempDir(), "missing.csv")), test.ShouldNotBeNil)

	bad := testutils.WriteTempFile(t, "bad.json", `{"grid": {"samples": 1}}`)
	err := ta.run(t, "--config", bad, "record", "plane", "--virtual")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "grid.samples")
}
