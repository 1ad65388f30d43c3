package kinematics

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPSMForwardKinematics(t *testing.T) {
	m, err := MakePSMModel()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, "psm")
	test.That(t, m.JointTypes()[InsertionJoint], test.ShouldEqual, Prismatic)

	for _, tc := range []struct {
		name     string
		q        JointVector
		expected r3.Vector
	}{
		{"straight down", JointVector{0, 0, 100, 0, 0, 0}, r3.Vector{X: 0, Y: 0, Z: -93.5}},
		{"yaw", JointVector{0.2, 0, 100, 0, 0, 0}, r3.Vector{X: 18.5756, Y: 0, Z: -91.6362}},
		{"pitch", JointVector{0, 0.2, 100, 0, 0, 0}, r3.Vector{X: 0, Y: -18.5756, Z: -91.6362}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pt := m.Transform(tc.q).Point()
			test.That(t, pt.X, test.ShouldAlmostEqual, tc.expected.X, 1e-3)
			test.That(t, pt.Y, test.ShouldAlmostEqual, tc.expected.Y, 1e-3)
			test.That(t, pt.Z, test.ShouldAlmostEqual, tc.expected.Z, 1e-3)
		})
	}

	down := m.Transform(JointVector{0, 0, 100, 0, 0, 0}).Orientation()
	test.That(t, down.Determinant(), test.ShouldAlmostEqual, 1, 1e-9)
}

func TestInsertionMovesAlongShaft(t *testing.T) {
	m, err := MakePSMModel()
	test.That(t, err, test.ShouldBeNil)
	q := JointVector{0.1, -0.2, 110, 0, 0, 0}
	a := m.Transform(q).Point()
	b := m.Transform(q.WithOffset(InsertionJoint, 5)).Point()
	test.That(t, b.Sub(a).Norm(), test.ShouldAlmostEqual, 5, 1e-9)
	// the shaft passes through the remote center of motion at the origin
	test.That(t, b.Normalize().Sub(a.Normalize()).Norm(), test.ShouldBeLessThan, 0.2)
}

func TestPositionIK(t *testing.T) {
	m, err := MakePSMModel()
	test.That(t, err, test.ShouldBeNil)
	ik := NewPositionIK(m)

	seed := JointVector{0, 0, 100, 0, 0, 0}
	for _, goal := range []JointVector{
		{0.1, -0.15, 120, 0, 0, 0},
		{-0.3, 0.25, 90, 0, 0, 0},
		{0, 0, 140, 0, 0, 0},
	} {
		target := m.Transform(goal).Point()
		solved, err := ik.Solve(target, seed)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, m.Transform(solved).Point().Sub(target).Norm(), test.ShouldBeLessThan, 1e-6)
		for i := 0; i < 3; i++ {
			test.That(t, solved[i], test.ShouldAlmostEqual, goal[i], 1e-6)
		}
	}
}

func TestModelJSONErrors(t *testing.T) {
	_, err := UnmarshalModelJSON(nil, "")
	test.That(t, err, test.ShouldBeError, ErrNoModelInformation)

	_, err = UnmarshalModelJSON([]byte(`{"name": "short", "dhParams": [{"id": "a"}]}`), "")
	test.That(t, err, test.ShouldWrap, ErrIncorrectDoF)

	_, err = UnmarshalModelJSON([]byte(`{"name": "x", "kinematic_param_type": "SVA"}`), "")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported param type")

	_, err = UnmarshalModelJSON([]byte(`{`), "")
	test.That(t, err, test.ShouldNotBeNil)

	m, err := UnmarshalModelJSON(psmModelJSON, "renamed")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, "renamed")
}

func TestNewModelLeavesParamsUntouched(t *testing.T) {
	params := make([]DHParam, NumJoints)
	params[InsertionJoint].Type = Prismatic
	m, err := NewModel("untyped", params)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, params[0].Type, test.ShouldEqual, JointType(""))
	test.That(t, m.JointTypes()[0], test.ShouldEqual, Revolute)
	test.That(t, m.JointTypes()[InsertionJoint], test.ShouldEqual, Prismatic)

	params[0].Type = "spherical"
	_, err = NewModel("bad", params)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported type")
}

func TestJointVector(t *testing.T) {
	q, err := JointVectorFromFloats([]float64{1, 2, 3, 4, 5, 6})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q.Floats(), test.ShouldResemble, []float64{1, 2, 3, 4, 5, 6})

	shifted := q.WithOffset(2, 0.5)
	test.That(t, shifted[2], test.ShouldEqual, 3.5)
	test.That(t, q[2], test.ShouldEqual, 3.0)

	_, err = JointVectorFromFloats([]float64{1, 2})
	test.That(t, err, test.ShouldWrap, ErrIncorrectDoF)
}
