// Package spatialmath defines poses and rotations in the arm's base frame.
// Distances are millimeters.
package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Pose represents a 6dof pose: a point and an orientation.
type Pose interface {
	Point() r3.Vector
	Orientation() *RotationMatrix
}

type distalPose struct {
	point       r3.Vector
	orientation *RotationMatrix
}

// NewPose returns a pose at pt with orientation o. A nil orientation is the identity.
func NewPose(pt r3.Vector, o *RotationMatrix) Pose {
	if o == nil {
		o = IdentityRotation()
	}
	return &distalPose{point: pt, orientation: o}
}

// NewPoseFromPoint returns a pose at pt with no rotation.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return NewPose(pt, nil)
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return NewPose(r3.Vector{}, nil)
}

func (p *distalPose) Point() r3.Vector {
	return p.point
}

func (p *distalPose) Orientation() *RotationMatrix {
	return p.orientation
}

func (p *distalPose) String() string {
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f R:%v}", p.point.X, p.point.Y, p.point.Z, p.orientation)
}

// Compose returns the pose a * b: b expressed in the frame of a.
func Compose(a, b Pose) Pose {
	ra := a.Orientation()
	return NewPose(ra.MulVec(b.Point()).Add(a.Point()), ra.Mul(b.Orientation()))
}

// PoseInverse returns the pose that undoes p.
func PoseInverse(p Pose) Pose {
	rt := p.Orientation().Transpose()
	return NewPose(rt.MulVec(p.Point()).Mul(-1), rt)
}

// PoseWithPoint returns a pose with p's orientation at pt.
func PoseWithPoint(p Pose, pt r3.Vector) Pose {
	return NewPose(pt, p.Orientation())
}

// PoseDelta returns the translation that moves a to b.
func PoseDelta(a, b Pose) r3.Vector {
	return b.Point().Sub(a.Point())
}

// Interpolate returns the point a fraction by of the way from a to b, keeping
// a's orientation.
func Interpolate(a, b Pose, by float64) Pose {
	return NewPose(a.Point().Add(b.Point().Sub(a.Point()).Mul(by)), a.Orientation())
}

// PoseAlmostCoincident reports whether two poses share a position within 1e-8 mm
// and orientation within 1e-8.
func PoseAlmostCoincident(a, b Pose) bool {
	return PoseAlmostCoincidentEps(a, b, 1e-8)
}

// PoseAlmostCoincidentEps is PoseAlmostCoincident with a chosen tolerance.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	return a.Point().Sub(b.Point()).Norm() <= epsilon &&
		RotationMatrixAlmostEqual(a.Orientation(), b.Orientation(), epsilon)
}
