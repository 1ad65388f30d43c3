package kinematics

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// PositionIK solves for joint positions that put the tip at a target point.
// Only the selected joints move; the rest keep their seed value.
type PositionIK struct {
	model      *Model
	joints     []int
	epsilon    float64
	iterations int
	maxStep    float64
	delta      float64
}

// NewPositionIK returns a solver moving the given joints, or the first three when none are given.
func NewPositionIK(model *Model, joints ...int) *PositionIK {
	if len(joints) == 0 {
		joints = []int{0, 1, 2}
	}
	return &PositionIK{
		model:      model,
		joints:     joints,
		epsilon:    1e-8,
		iterations: 200,
		maxStep:    10,
		delta:      1e-6,
	}
}

// Solve runs Newton iterations with a finite difference Jacobian from seed
// until the tip is within epsilon mm of target. Large moves are taken in
// steps of at most maxStep mm.
func (ik *PositionIK) Solve(target r3.Vector, seed JointVector) (JointVector, error) {
	q := seed
	n := len(ik.joints)
	jac := mat.NewDense(3, n, nil)
	dx := mat.NewVecDense(3, nil)
	var dq mat.VecDense

	for iteration := 0; iteration < ik.iterations; iteration++ {
		current := ik.model.Transform(q).Point()
		diff := target.Sub(current)
		if diff.Norm() < ik.epsilon {
			return q, nil
		}
		if norm := diff.Norm(); norm > ik.maxStep {
			diff = diff.Mul(ik.maxStep / norm)
		}
		dx.SetVec(0, diff.X)
		dx.SetVec(1, diff.Y)
		dx.SetVec(2, diff.Z)

		for col, joint := range ik.joints {
			moved := ik.model.Transform(q.WithOffset(joint, ik.delta)).Point()
			d := moved.Sub(current).Mul(1 / ik.delta)
			jac.Set(0, col, d.X)
			jac.Set(1, col, d.Y)
			jac.Set(2, col, d.Z)
		}
		if err := dq.SolveVec(jac, dx); err != nil {
			return seed, errors.Wrapf(ErrIKNotConverged, "singular jacobian at %v: %v", q, err)
		}
		for col, joint := range ik.joints {
			q[joint] += dq.AtVec(col)
		}
	}
	return seed, errors.Wrapf(ErrIKNotConverged, "target %v not reached after %d iterations", target, ik.iterations)
}
