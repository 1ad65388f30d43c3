package kinematics

import (
	"fmt"
	"strings"
)

// NumJoints is the number of joints of every supported arm.
const NumJoints = 6

// JointVector holds one position per joint, ordered from the base outward.
// Revolute joints are in radians and prismatic joints in mm.
type JointVector [NumJoints]float64

// JointVectorFromFloats converts vals to a JointVector. It fails unless len(vals) is NumJoints.
func JointVectorFromFloats(vals []float64) (JointVector, error) {
	var q JointVector
	if len(vals) != NumJoints {
		return q, NewIncorrectDoFError(len(vals), NumJoints)
	}
	copy(q[:], vals)
	return q, nil
}

// Floats returns the joint values as a new slice.
func (q JointVector) Floats() []float64 {
	return append([]float64(nil), q[:]...)
}

// WithOffset returns a copy of q with delta added to the given joint.
func (q JointVector) WithOffset(joint int, delta float64) JointVector {
	q[joint] += delta
	return q
}

func (q JointVector) String() string {
	parts := make([]string, len(q))
	for i, v := range q {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
