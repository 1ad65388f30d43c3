// Package fake implements a simulated arm palpating a flat surface.
package fake

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/dvrk-tools/palpcal/components/arm"
	"github.com/dvrk-tools/palpcal/kinematics"
	"github.com/dvrk-tools/palpcal/logging"
	"github.com/dvrk-tools/palpcal/spatialmath"
)

// Config is used for converting config attributes.
type Config struct {
	// Name of the simulated arm.
	Name string `json:"name"`
	// ModelFilePath points at a kinematics JSON file; the built-in PSM model is used when empty.
	ModelFilePath string `json:"model_path,omitempty"`
	// JointOffset is the error of the insertion joint in joint units. The tool
	// physically sits at the reported joints plus this offset.
	JointOffset float64 `json:"joint_offset"`
	// Joint is the index of the joint carrying JointOffset.
	Joint int `json:"joint"`
	// SurfaceZ is the height of the horizontal surface, mm.
	SurfaceZ float64 `json:"surface_z"`
	// Stiffness is the contact force per mm of penetration.
	Stiffness float64 `json:"stiffness"`
	// HomeJoints is where Home moves to.
	HomeJoints kinematics.JointVector `json:"home_joints"`
}

// DefaultConfig returns a PSM above a surface 110 mm below the remote center.
func DefaultConfig() Config {
	return Config{
		Name:       "sim",
		Joint:      kinematics.InsertionJoint,
		SurfaceZ:   -110,
		Stiffness:  1,
		HomeJoints: kinematics.JointVector{0, 0, 80, 0, 0, 0},
	}
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate() error {
	if conf.Joint < 0 || conf.Joint >= kinematics.NumJoints {
		return errors.Errorf("joint index %d out of range", conf.Joint)
	}
	if conf.Stiffness <= 0 {
		return errors.New("stiffness must be positive")
	}
	return nil
}

// Arm is a simulated arm. It holds the joints it reports; the tool is where the
// model puts those joints plus the configured joint offset. Contact force grows
// linearly with penetration of the tool below the surface.
type Arm struct {
	name   string
	logger logging.Logger

	mu     sync.Mutex
	model  *kinematics.Model
	ik     *kinematics.PositionIK
	conf   Config
	joints kinematics.JointVector
	homed  bool
	moves  int
}

// NewArm returns a simulated arm sitting at its home joints.
func NewArm(conf Config, logger logging.Logger) (*Arm, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	var model *kinematics.Model
	var err error
	if conf.ModelFilePath != "" {
		model, err = kinematics.ParseModelJSONFile(conf.ModelFilePath, "")
	} else {
		model, err = kinematics.MakePSMModel()
	}
	if err != nil {
		return nil, err
	}
	return &Arm{
		name:   conf.Name,
		logger: logger,
		model:  model,
		ik:     kinematics.NewPositionIK(model),
		conf:   conf,
		joints: conf.HomeJoints,
	}, nil
}

// Name returns the arm name.
func (a *Arm) Name() string {
	return a.name
}

// Home moves to the configured home joints.
func (a *Arm) Home(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.joints = a.conf.HomeJoints
	a.homed = true
	a.logger.Debugw("homed", "joints", a.joints)
	return nil
}

// MoveToPosition solves for joints that put the modeled tip at pose.
func (a *Arm) MoveToPosition(ctx context.Context, pose spatialmath.Pose) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.homed {
		return arm.ErrArmNotHomed
	}
	joints, err := a.ik.Solve(pose.Point(), a.joints)
	if err != nil {
		return arm.NewMoveError(pose, err)
	}
	a.joints = joints
	a.moves++
	return nil
}

// MoveToJointPositions sets the joints.
func (a *Arm) MoveToJointPositions(ctx context.Context, positions kinematics.JointVector) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.homed {
		return arm.ErrArmNotHomed
	}
	a.joints = positions
	a.moves++
	return nil
}

// EndPosition returns the pose the model gives for the reported joints.
func (a *Arm) EndPosition(ctx context.Context) (spatialmath.Pose, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model.Transform(a.joints), nil
}

// JointPositions returns the reported joints.
func (a *Arm) JointPositions(ctx context.Context) (kinematics.JointVector, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.joints, nil
}

// Wrench returns the surface reaction along +z.
func (a *Arm) Wrench(ctx context.Context) (arm.Wrench, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	depth := a.conf.SurfaceZ - a.toolLocked().Z
	if depth <= 0 {
		return arm.Wrench{}, nil
	}
	return arm.Wrench{Force: r3.Vector{Z: a.conf.Stiffness * depth}}, nil
}

// ToolPosition returns where the tool physically is, including the joint offset.
func (a *Arm) ToolPosition() r3.Vector {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.toolLocked()
}

// Moves returns the number of completed motions.
func (a *Arm) Moves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moves
}

// Kinematics returns the model used to report positions.
func (a *Arm) Kinematics() *kinematics.Model {
	return a.model
}

func (a *Arm) toolLocked() r3.Vector {
	return a.model.Transform(a.joints.WithOffset(a.conf.Joint, a.conf.JointOffset)).Point()
}
