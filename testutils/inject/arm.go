// Package inject provides components whose methods can be replaced per test.
package inject

import (
	"context"

	"github.com/dvrk-tools/palpcal/components/arm"
	"github.com/dvrk-tools/palpcal/kinematics"
	"github.com/dvrk-tools/palpcal/spatialmath"
)

// Arm is an injected arm.
type Arm struct {
	arm.Arm
	NameFunc                 func() string
	HomeFunc                 func(ctx context.Context) error
	MoveToPositionFunc       func(ctx context.Context, pose spatialmath.Pose) error
	MoveToJointPositionsFunc func(ctx context.Context, positions kinematics.JointVector) error
	EndPositionFunc          func(ctx context.Context) (spatialmath.Pose, error)
	JointPositionsFunc       func(ctx context.Context) (kinematics.JointVector, error)
	WrenchFunc               func(ctx context.Context) (arm.Wrench, error)
}

// NewArm returns a new injected arm.
func NewArm(name string) *Arm {
	return &Arm{NameFunc: func() string { return name }}
}

// Name calls the injected Name or the real version.
func (a *Arm) Name() string {
	if a.NameFunc == nil {
		return a.Arm.Name()
	}
	return a.NameFunc()
}

// Home calls the injected Home or the real version.
func (a *Arm) Home(ctx context.Context) error {
	if a.HomeFunc == nil {
		return a.Arm.Home(ctx)
	}
	return a.HomeFunc(ctx)
}

// MoveToPosition calls the injected MoveToPosition or the real version.
func (a *Arm) MoveToPosition(ctx context.Context, pose spatialmath.Pose) error {
	if a.MoveToPositionFunc == nil {
		return a.Arm.MoveToPosition(ctx, pose)
	}
	return a.MoveToPositionFunc(ctx, pose)
}

// MoveToJointPositions calls the injected MoveToJointPositions or the real version.
func (a *Arm) MoveToJointPositions(ctx context.Context, positions kinematics.JointVector) error {
	if a.MoveToJointPositionsFunc == nil {
		return a.Arm.MoveToJointPositions(ctx, positions)
	}
	return a.MoveToJointPositionsFunc(ctx, positions)
}

// EndPosition calls the injected EndPosition or the real version.
func (a *Arm) EndPosition(ctx context.Context) (spatialmath.Pose, error) {
	if a.EndPositionFunc == nil {
		return a.Arm.EndPosition(ctx)
	}
	return a.EndPositionFunc(ctx)
}

// JointPositions calls the injected JointPositions or the real version.
func (a *Arm) JointPositions(ctx context.Context) (kinematics.JointVector, error) {
	if a.JointPositionsFunc == nil {
		return a.Arm.JointPositions(ctx)
	}
	return a.JointPositionsFunc(ctx)
}

// Wrench calls the injected Wrench or the real version.
func (a *Arm) Wrench(ctx context.Context) (arm.Wrench, error) {
	if a.WrenchFunc == nil {
		return a.Arm.Wrench(ctx)
	}
	return a.WrenchFunc(ctx)
}
