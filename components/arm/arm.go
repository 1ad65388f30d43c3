// Package arm defines the arm that palpates the calibration surface.
package arm

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/dvrk-tools/palpcal/kinematics"
	"github.com/dvrk-tools/palpcal/spatialmath"
)

// Wrench is a force (N) and torque (N·mm) measured in the tool's body frame.
type Wrench struct {
	Force  r3.Vector
	Torque r3.Vector
}

// ForceAlong returns the force component on axis 0 (x), 1 (y) or 2 (z).
func (w Wrench) ForceAlong(axis int) float64 {
	switch axis {
	case 0:
		return w.Force.X
	case 1:
		return w.Force.Y
	default:
		return w.Force.Z
	}
}

// An Arm represents a physical robotic arm that exists in three-dimensional space.
// Every move blocks until the arm reports it has settled.
type Arm interface {
	// Name returns the arm's name, used for run folders.
	Name() string

	// Home moves the arm to its homing configuration.
	Home(ctx context.Context) error

	// MoveToPosition moves the arm to the given absolute position.
	MoveToPosition(ctx context.Context, pose spatialmath.Pose) error

	// MoveToJointPositions moves the arm's joints to the given positions.
	MoveToJointPositions(ctx context.Context, positions kinematics.JointVector) error

	// EndPosition returns the current position of the arm.
	EndPosition(ctx context.Context) (spatialmath.Pose, error)

	// JointPositions returns the current joint positions of the arm.
	JointPositions(ctx context.Context) (kinematics.JointVector, error)

	// Wrench returns the body frame wrench at the tool.
	Wrench(ctx context.Context) (Wrench, error)
}

// ErrArmNotHomed is returned by arms that refuse motion before Home.
var ErrArmNotHomed = errors.New("arm is not homed")

// NewMoveError wraps a failed motion with the pose it was moving to.
func NewMoveError(pose spatialmath.Pose, err error) error {
	return errors.Wrapf(err, "cannot move arm to %v", pose.Point())
}
