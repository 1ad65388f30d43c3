// Package config defines the calibration settings file.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/a8m/envsubst"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	armfake "github.com/dvrk-tools/palpcal/components/arm/fake"
	"github.com/dvrk-tools/palpcal/configpatch"
	"github.com/dvrk-tools/palpcal/fit"
	"github.com/dvrk-tools/palpcal/grid"
	"github.com/dvrk-tools/palpcal/kinematics"
	"github.com/dvrk-tools/palpcal/offsetsweep"
	"github.com/dvrk-tools/palpcal/palpation"
	"github.com/dvrk-tools/palpcal/spatialmath"
	"github.com/dvrk-tools/palpcal/utils"
)

// Config holds everything a calibration run needs besides the hardware.
type Config struct {
	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`

	Arm        string             `json:"arm"`
	DataDir    string             `json:"data_dir"`
	ModelFile  string             `json:"model_file,omitempty"`
	PlaneError string             `json:"plane_error"`
	Grid       GridConfig         `json:"grid"`
	Palpation  palpation.Config   `json:"palpation"`
	Sweep      offsetsweep.Params `json:"sweep"`
	Tracker    TrackerConfig      `json:"tracker"`
	Patch      configpatch.Target `json:"patch"`
	Sim        SimConfig          `json:"sim"`
}

// GridConfig describes the palpation grid. Corners are mm in the arm base frame.
type GridConfig struct {
	Samples int          `json:"samples"`
	Corners [3][3]float64 `json:"corners"`
}

// TrackerConfig describes the joint-space scan of a tracker run. Each entry is
// the list of values one joint takes; the scan visits every combination.
type TrackerConfig struct {
	Joints [kinematics.NumJoints][]float64 `json:"joints"`
	// Settle is how many reads to discard after each move.
	Settle int `json:"settle"`
}

// SimConfig configures the virtual hardware.
type SimConfig struct {
	Arm armfake.Config `json:"arm"`
	// Offset is the error injected into the simulated arm, in sweep offset units.
	Offset float64 `json:"offset"`
	// TrackerPose places the simulated tracker relative to the arm base.
	TrackerPose [6]float64 `json:"tracker_pose"`
	// TrackerDropEvery makes every n-th tracker read fail. Zero never fails.
	TrackerDropEvery int `json:"tracker_drop_every"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Arm:        "PSM1",
		DataDir:    utils.DefaultDataDir,
		PlaneError: fit.PointToPlane.String(),
		Grid: GridConfig{
			Samples: 10,
			Corners: [3][3]float64{
				{-30, -30, -105},
				{30, -30, -105},
				{-30, 30, -105},
			},
		},
		Palpation: palpation.DefaultConfig(),
		Sweep:     offsetsweep.DefaultParams(),
		Tracker: TrackerConfig{
			Joints: [kinematics.NumJoints][]float64{
				utils.Linspace(-0.6, 0.6, 5),
				utils.Linspace(-0.4, 0.4, 5),
				utils.Linspace(90, 180, 4),
				{0},
				{0},
				{0},
			},
		},
		Patch: configpatch.DefaultTarget(),
		Sim: SimConfig{
			Arm:         armfake.DefaultConfig(),
			Offset:      0.004,
			TrackerPose: [6]float64{250, -40, 900, 0, 0, 0.7},
		},
	}
}

// Read loads a config file, expanding ${VAR} references from the environment,
// and lays it over the defaults.
func Read(path string) (*Config, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", path)
	}
	cfg, err := FromReader(path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromReader decodes a config from r over the defaults, applies the
// environment overrides and validates the result.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	cfg := Default()
	cfg.ConfigFilePath = originalPath
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// ApplyEnv applies the PALPCAL_ARM and PALPCAL_DATA_DIR overrides.
func (c *Config) ApplyEnv() {
	c.Arm = utils.GetEnvOrDefault(utils.ArmNameEnvVar, c.Arm)
	c.DataDir = utils.GetEnvOrDefault(utils.DataDirEnvVar, c.DataDir)
}

// Validate returns the first invalid field.
func (c *Config) Validate() error {
	if c.Arm == "" {
		return NewFieldRequiredError("", "arm")
	}
	if c.DataDir == "" {
		return NewFieldRequiredError("", "data_dir")
	}
	if _, err := fit.ParseErrorConvention(c.PlaneError); err != nil {
		return utils.NewInvalidFieldError("plane_error", err.Error())
	}
	if err := c.Grid.Validate("grid"); err != nil {
		return err
	}
	if err := c.Palpation.Validate("palpation"); err != nil {
		return err
	}
	if err := c.Sweep.Validate("sweep"); err != nil {
		return err
	}
	if err := c.Tracker.Validate("tracker"); err != nil {
		return err
	}
	if c.Patch.Path == "" {
		return NewFieldRequiredError("patch", "path")
	}
	if c.Patch.Attribute == "" {
		return NewFieldRequiredError("patch", "attribute")
	}
	if err := c.Sim.Arm.Validate(); err != nil {
		return utils.NewInvalidFieldError("sim.arm", err.Error())
	}
	if c.Sim.TrackerDropEvery < 0 {
		return utils.NewInvalidFieldError("sim.tracker_drop_every", "must not be negative")
	}
	return nil
}

// PlaneConvention returns the parsed plane error convention.
func (c *Config) PlaneConvention() fit.ErrorConvention {
	conv, err := fit.ParseErrorConvention(c.PlaneError)
	if err != nil {
		return fit.PointToPlane
	}
	return conv
}

// Model loads the kinematic model: ModelFile when set, the built-in PSM otherwise.
func (c *Config) Model() (*kinematics.Model, error) {
	if c.ModelFile == "" {
		return kinematics.MakePSMModel()
	}
	return kinematics.ParseModelJSONFile(c.ModelFile, "")
}

// SimArm returns the simulated arm config with the injected offset converted to joint units.
func (c *Config) SimArm() armfake.Config {
	conf := c.Sim.Arm
	conf.Name = c.Arm
	conf.ModelFilePath = c.ModelFile
	conf.Joint = c.Sweep.Joint
	conf.JointOffset = c.Sim.Offset * c.Sweep.Scale
	return conf
}

// SimTrackerPose returns the simulated tracker placement. The last three
// values are an axis-angle rotation in radians.
func (c *Config) SimTrackerPose() spatialmath.Pose {
	p := c.Sim.TrackerPose
	axis := r3.Vector{X: p[3], Y: p[4], Z: p[5]}
	return spatialmath.NewPose(r3.Vector{X: p[0], Y: p[1], Z: p[2]}, spatialmath.NewRotationFromAxisAngle(axis, axis.Norm()))
}

// Validate ensures all parts of the config are valid.
func (g *GridConfig) Validate(path string) error {
	if g.Samples < 2 {
		return utils.NewInvalidFieldError(path+".samples", "must be at least 2")
	}
	if _, err := g.Build(); err != nil {
		return utils.NewInvalidFieldError(path+".corners", err.Error())
	}
	return nil
}

// Build returns the grid described by the config, oriented tool down.
func (g *GridConfig) Build() (*grid.Grid, error) {
	toolDown := spatialmath.RotationAboutX(math.Pi)
	var corners [3]spatialmath.Pose
	for i, c := range g.Corners {
		corners[i] = spatialmath.NewPose(r3.Vector{X: c[0], Y: c[1], Z: c[2]}, toolDown)
	}
	return grid.New(corners[0], corners[1], corners[2], g.Samples)
}

// Validate ensures all parts of the config are valid.
func (t *TrackerConfig) Validate(path string) error {
	for i, values := range t.Joints {
		if len(values) == 0 {
			return utils.NewInvalidFieldError(path+".joints", fmt.Sprintf("joint %d has no values", i))
		}
	}
	if t.Settle < 0 {
		return utils.NewInvalidFieldError(path+".settle", "must not be negative")
	}
	return nil
}

// Scan returns every joint vector of the scan, the last joint varying fastest.
func (t *TrackerConfig) Scan() []kinematics.JointVector {
	m := utils.Multiple(t.Joints[:])
	rows, _ := m.Dims()
	out := make([]kinematics.JointVector, rows)
	for i := range out {
		copy(out[i][:], m.RawRowView(i))
	}
	return out
}

// NewFieldRequiredError is returned when a required field is empty.
func NewFieldRequiredError(path, field string) error {
	if path != "" {
		field = path + "." + field
	}
	return errors.Errorf("%q is required", field)
}
