package cli

import (
	"bufio"
	"context"
	"fmt"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/dvrk-tools/palpcal/calibration"
	"github.com/dvrk-tools/palpcal/components/arm"
	armfake "github.com/dvrk-tools/palpcal/components/arm/fake"
	"github.com/dvrk-tools/palpcal/components/tracker"
	trackerfake "github.com/dvrk-tools/palpcal/components/tracker/fake"
	"github.com/dvrk-tools/palpcal/config"
	"github.com/dvrk-tools/palpcal/logging"
	"github.com/dvrk-tools/palpcal/palpation"
)

// ErrNoHardware is returned when no driver is registered for the configured arm or tracker.
var ErrNoHardware = errors.New("no hardware driver registered")

// ArmConstructor connects to a hardware arm.
type ArmConstructor func(ctx context.Context, cfg *config.Config, logger logging.Logger) (arm.Arm, error)

// TrackerConstructor connects to a hardware tracker.
type TrackerConstructor func(ctx context.Context, cfg *config.Config, logger logging.Logger) (tracker.Tracker, error)

var (
	driversMu sync.Mutex
	arms      = map[string]ArmConstructor{}
	trackers  = map[string]TrackerConstructor{}
)

// RegisterArm registers the driver used for arms named name.
func RegisterArm(name string, constructor ArmConstructor) {
	driversMu.Lock()
	defer driversMu.Unlock()
	arms[name] = constructor
}

// RegisterTracker registers the driver used for trackers watching arms named name.
func RegisterTracker(name string, constructor TrackerConstructor) {
	driversMu.Lock()
	defer driversMu.Unlock()
	trackers[name] = constructor
}

type hardware struct {
	arm     arm.Arm
	tracker tracker.Tracker
}

// connect returns the simulated arm and tracker with --virtual, otherwise the
// registered drivers for the configured arm.
func connect(c *cli.Context, cfg *config.Config, withTracker bool, logger logging.Logger) (*hardware, error) {
	if c.Bool(recordFlagVirtual) {
		sim, err := armfake.NewArm(cfg.SimArm(), logger.Sublogger("sim"))
		if err != nil {
			return nil, err
		}
		hw := &hardware{arm: sim}
		if withTracker {
			hw.tracker = trackerfake.NewTracker(sim.ToolPosition, cfg.SimTrackerPose(), cfg.Sim.TrackerDropEvery)
		}
		return hw, nil
	}

	driversMu.Lock()
	newArm, okArm := arms[cfg.Arm]
	newTracker, okTracker := trackers[cfg.Arm]
	driversMu.Unlock()
	if !okArm {
		return nil, errors.Wrapf(ErrNoHardware, "arm %q (pass --%s to simulate)", cfg.Arm, recordFlagVirtual)
	}
	a, err := newArm(c.Context, cfg, logger)
	if err != nil {
		return nil, err
	}
	hw := &hardware{arm: a}
	if withTracker {
		if !okTracker {
			return nil, errors.Wrapf(ErrNoHardware, "tracker for %q (pass --%s to simulate)", cfg.Arm, recordFlagVirtual)
		}
		if hw.tracker, err = newTracker(c.Context, cfg, logger); err != nil {
			return nil, err
		}
	}
	return hw, nil
}

func newRun(c *cli.Context, cfg *config.Config, logger logging.Logger) (*calibration.Run, error) {
	run, err := calibration.NewRun(cfg.DataDir, cfg.Arm, appClock(c).Now(), logger)
	if err != nil {
		return nil, err
	}
	if c.Bool(recordFlagVirtual) {
		run.Set("virtual_offset", cfg.Sim.Offset)
	}
	if cfg.ConfigFilePath != "" {
		run.Set("config", cfg.ConfigFilePath)
	}
	return run, nil
}

func printNextSteps(c *cli.Context, file string) {
	printf(c.App.Writer, "Run `%s view %s` to view the recorded data points,", c.App.Name, file)
	printf(c.App.Writer, "run `%s analyze %s` to analyze them, or", c.App.Name, file)
	printf(c.App.Writer, "run `%s analyze %s --%s CONFIG.xml` to analyze them and write the resulting offset",
		c.App.Name, file, analyzeFlagWrite)
}

// RecordPlaneAction palpates the configured grid.
func RecordPlaneAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	g, err := cfg.Grid.Build()
	if err != nil {
		return err
	}
	det, err := palpation.NewDetector(cfg.Palpation, logger.Sublogger("palpation"))
	if err != nil {
		return err
	}
	hw, err := connect(c, cfg, false, logger)
	if err != nil {
		return err
	}
	run, err := newRun(c, cfg, logger)
	if err != nil {
		return err
	}
	rec, err := calibration.RecordPlane(c.Context, hw.arm, g, det, run, logger)
	if err != nil {
		return err
	}
	printTable(c.App.Writer, table.Row{"Run", "Samples", "Depth mean (mm)", "Depth std dev (mm)"},
		table.Row{run.Dir, rec.Samples.Len(), ff(rec.Depth.Mean), ff(rec.Depth.StdDev)})
	printNextSteps(c, rec.File)
	return nil
}

// RecordTrackerAction scans the configured joint grid with the tracker watching.
func RecordTrackerAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	hw, err := connect(c, cfg, true, logger)
	if err != nil {
		return err
	}
	run, err := newRun(c, cfg, logger)
	if err != nil {
		return err
	}
	rec, err := calibration.RecordTracker(c.Context, hw.arm, hw.tracker, cfg.Tracker.Scan(), cfg.Tracker.Settle, run, logger)
	if err != nil {
		return err
	}
	printTable(c.App.Writer, table.Row{"Run", "Samples", "Skipped"},
		table.Row{run.Dir, rec.Samples.Len(), rec.Skipped})
	if rec.Skipped > 0 {
		warningf(c.App.ErrWriter, "%d tracker readings were unusable and left out", rec.Skipped)
	}
	printNextSteps(c, rec.File)
	return nil
}

// RecordSingleAction palpates once below the arm's current position.
func RecordSingleAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	det, err := palpation.NewDetector(cfg.Palpation, logger.Sublogger("palpation"))
	if err != nil {
		return err
	}
	hw, err := connect(c, cfg, false, logger)
	if err != nil {
		return err
	}

	if c.Bool(recordFlagVirtual) {
		// the simulated arm starts above the first grid corner
		g, err := cfg.Grid.Build()
		if err != nil {
			return err
		}
		if err := hw.arm.Home(c.Context); err != nil {
			return err
		}
		if err := hw.arm.MoveToPosition(c.Context, g.At(0).Pose); err != nil {
			return err
		}
	} else {
		//nolint:errcheck
		fmt.Fprint(c.App.Writer, "Position the arm at the point you want to palpate at, then press enter. ")
		if _, err := bufio.NewReader(c.App.Reader).ReadString('\n'); err != nil {
			return errors.Wrap(err, "waiting for the operator")
		}
	}

	run, err := newRun(c, cfg, logger)
	if err != nil {
		return err
	}
	res, err := calibration.SinglePalpation(c.Context, hw.arm, det, run, logger)
	if err != nil {
		return err
	}
	printTable(c.App.Writer, table.Row{"Contact z (mm)", "Depth (mm)", "Surface z (mm)", "Trace"},
		table.Row{ff(res.Result.Sample.Pose.Point().Z), ff(res.Result.Depth), ff(res.SurfaceZ), res.TraceFile})
	return nil
}
