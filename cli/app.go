// Package cli contains the palpcal command line.
package cli

import (
	"io"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"

	"github.com/dvrk-tools/palpcal/calibration"
)

// Flags.
const (
	generalFlagConfig     = "config"
	generalFlagDebug      = "debug"
	generalFlagLogLevel   = "log-level"
	recordFlagArm         = "arm"
	recordFlagSamples     = "samples"
	recordFlagVirtual     = "virtual"
	analyzeFlagCurve      = "curve"
	analyzeFlagWrite      = "write"
	analyzeFlagOutput     = "output"
	analyzeFlagNoOutput   = "no-output"
	analyzeFlagSmooth     = "smooth"
	analyzeFlagPlaneError = "plane-error"
)

func recordFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    recordFlagArm,
			Aliases: []string{"a"},
			Usage:   "name of the arm to record from, overrides the config",
		},
		&cli.BoolFlag{
			Name:  recordFlagVirtual,
			Usage: "use the simulated arm and tracker from the config's sim section",
		},
	}, extra...)
}

// metadataClock keys the clock run folders are named from.
const metadataClock = "clock"

// NewApp returns a new app with the palpcal commands, Writer set to out, and
// ErrWriter set to errOut. Logs go to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return newApp(out, errOut, clock.New())
}

func newApp(out, errOut io.Writer, clk clock.Clock) *cli.App {
	return &cli.App{
		Name:            "palpcal",
		Usage:           "calibrate the insertion joint offset of a surgical arm",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Metadata:        map[string]interface{}{metadataClock: clk},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    generalFlagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  generalFlagLogLevel,
				Usage: "log `LEVEL`: debug, info, warn or error",
				Value: "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:            "record",
				Usage:           "record calibration data into a new run folder",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:  "plane",
						Usage: "palpate a grid of points on a flat surface",
						Flags: recordFlags(&cli.IntFlag{
							Name:    recordFlagSamples,
							Aliases: []string{"n"},
							Usage:   "number of samples per grid row (10 gives good data)",
						}),
						Action: RecordPlaneAction,
					},
					{
						Name:   "tracker",
						Usage:  "scan joint space while an optical tracker watches the tool",
						Flags:  recordFlags(),
						Action: RecordTrackerAction,
					},
					{
						Name:   "single",
						Usage:  "palpate once below the current position and save the trace",
						Flags:  recordFlags(),
						Action: RecordSingleAction,
					},
				},
			},
			{
				Name:      "analyze",
				Usage:     "find the joint offset that best explains recorded samples",
				ArgsUsage: "<samples file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  analyzeFlagCurve,
						Usage: "pick the offset from a saved " + calibration.CurveFile + " `CSV` instead of sweeping samples",
					},
					&cli.StringFlag{
						Name:    analyzeFlagWrite,
						Aliases: []string{"w"},
						Usage:   "add the correction to the offset in this arm configuration `XML`",
					},
					&cli.StringFlag{
						Name:    analyzeFlagOutput,
						Aliases: []string{"o"},
						Usage:   "folder for the " + calibration.CurveFile + " curve and plot, defaults to the samples folder",
					},
					&cli.BoolFlag{
						Name:    analyzeFlagNoOutput,
						Aliases: []string{"n"},
						Usage:   "do not save the offset curve",
					},
					&cli.BoolFlag{
						Name:  analyzeFlagSmooth,
						Usage: "choose the vertex of a parabola fit to the curve instead of its raw minimum",
					},
					&cli.StringFlag{
						Name:  analyzeFlagPlaneError,
						Usage: "plane error convention: point_to_plane or legacy",
					},
				},
				Action: AnalyzeAction,
			},
			{
				Name:      "view",
				Usage:     "summarize and plot a samples file, an offset curve, a palpation trace or a run folder",
				ArgsUsage: "<file or folder>",
				Action:    ViewAction,
			},
		},
	}
}
