// Package kinematics models serial arms with modified Denavit-Hartenberg
// parameters and solves their forward and position inverse kinematics.
package kinematics

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/dvrk-tools/palpcal/spatialmath"
)

// JointType is the kind of motion a joint produces.
type JointType string

const (
	// Revolute joints rotate about their z axis; values are radians.
	Revolute JointType = "revolute"
	// Prismatic joints slide along their z axis; values are mm.
	Prismatic JointType = "prismatic"
)

// DHParam is one link in modified (Craig) DH convention. Theta and D are the
// constant parts; the joint value is added to Theta for a revolute joint and
// to D for a prismatic one.
type DHParam struct {
	ID    string    `json:"id"`
	A     float64   `json:"a"`
	Alpha float64   `json:"alpha"`
	D     float64   `json:"d"`
	Theta float64   `json:"theta"`
	Type  JointType `json:"type"`
}

// transform returns the link transform for joint value q:
// RotX(alpha) TransX(a) RotZ(theta) TransZ(d).
func (p DHParam) transform(q float64) spatialmath.Pose {
	theta, d := p.Theta, p.D
	if p.Type == Prismatic {
		d += q
	} else {
		theta += q
	}
	sa, ca := math.Sincos(p.Alpha)
	rot := spatialmath.RotationAboutX(p.Alpha).Mul(spatialmath.RotationAboutZ(theta))
	return spatialmath.NewPose(r3.Vector{X: p.A, Y: -sa * d, Z: ca * d}, rot)
}

// Model is a serial chain of NumJoints links.
type Model struct {
	name   string
	params []DHParam
}

// NewModel creates a model from exactly NumJoints DH parameters.
func NewModel(name string, params []DHParam) (*Model, error) {
	if len(params) != NumJoints {
		return nil, NewIncorrectDoFError(len(params), NumJoints)
	}
	params = append([]DHParam(nil), params...)
	for i, p := range params {
		switch p.Type {
		case Revolute, Prismatic:
		case "":
			params[i].Type = Revolute
		default:
			return nil, errors.Errorf("joint %d (%q) has unsupported type %q", i, p.ID, p.Type)
		}
	}
	return &Model{name: name, params: params}, nil
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// JointTypes returns the type of each joint.
func (m *Model) JointTypes() []JointType {
	types := make([]JointType, len(m.params))
	for i, p := range m.params {
		types[i] = p.Type
	}
	return types
}

// Transform returns the tip pose in the base frame for joint positions q.
func (m *Model) Transform(q JointVector) spatialmath.Pose {
	pose := spatialmath.NewZeroPose()
	for i, p := range m.params {
		pose = spatialmath.Compose(pose, p.transform(q[i]))
	}
	return pose
}
