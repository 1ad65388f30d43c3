package cli

import (
	"fmt"
	"io"

	"github.com/benbjohnson/clock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/dvrk-tools/palpcal/config"
	"github.com/dvrk-tools/palpcal/logging"
)

// printf prints a line to w.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a warning line to the error writer.
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, "Warning: "+format+"\n", a...)
}

// newLogger logs to the app's error writer at --log-level, or debug with --debug.
func newLogger(c *cli.Context) (logging.Logger, error) {
	logger := logging.NewWriterLogger("palpcal", c.App.ErrWriter, logging.INFO)
	switch {
	case c.Bool(generalFlagDebug):
		logger.SetLevel(logging.DEBUG)
	case c.IsSet(generalFlagLogLevel):
		lvl, err := logging.LevelFromString(c.String(generalFlagLogLevel))
		if err != nil {
			return nil, err
		}
		logger.SetLevel(lvl)
	}
	return logger, nil
}

func appClock(c *cli.Context) clock.Clock {
	if clk, ok := c.App.Metadata[metadataClock].(clock.Clock); ok {
		return clk
	}
	return clock.New()
}

// loadConfig reads the --config file, or the defaults with environment
// overrides when none is given.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String(generalFlagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
		cfg.ApplyEnv()
	}
	if c.IsSet(recordFlagArm) {
		cfg.Arm = c.String(recordFlagArm)
	}
	if c.IsSet(recordFlagSamples) {
		cfg.Grid.Samples = c.Int(recordFlagSamples)
	}
	if c.IsSet(analyzeFlagSmooth) {
		cfg.Sweep.Smooth = c.Bool(analyzeFlagSmooth)
	}
	if c.IsSet(analyzeFlagPlaneError) {
		cfg.PlaneError = c.String(analyzeFlagPlaneError)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// printTable renders rows under header.
func printTable(w io.Writer, header table.Row, rows ...table.Row) {
	t := table.NewWriter()
	t.AppendHeader(header)
	t.AppendRows(rows)
	printf(w, "%s", t.Render())
}

func ff(v float64) string {
	return fmt.Sprintf("%.6g", v)
}
