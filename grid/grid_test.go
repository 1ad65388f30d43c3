package grid

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/dvrk-tools/palpcal/spatialmath"
)

func corners() (spatialmath.Pose, spatialmath.Pose, spatialmath.Pose) {
	o := spatialmath.RotationAboutX(0.2)
	return spatialmath.NewPose(r3.Vector{X: 0, Y: 0, Z: -100}, o),
		spatialmath.NewPose(r3.Vector{X: 30, Y: 0, Z: -100}, o),
		spatialmath.NewPose(r3.Vector{X: 0, Y: 30, Z: -101}, o)
}

func TestBoustrophedon(t *testing.T) {
	p0, p1, p2 := corners()
	g, err := New(p0, p1, p2, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Len(), test.ShouldEqual, 16)

	var targets []Target
	for k, target := range g.All() {
		test.That(t, k, test.ShouldEqual, len(targets))
		targets = append(targets, target)
	}
	test.That(t, targets, test.ShouldHaveLength, 16)

	for k, target := range targets {
		row := k / 4
		test.That(t, target.Row, test.ShouldEqual, row)
		if row%2 == 0 {
			test.That(t, target.Col, test.ShouldEqual, k%4)
		} else {
			test.That(t, target.Col, test.ShouldEqual, 3-k%4)
		}
		test.That(t, target.Pose.Orientation(), test.ShouldEqual, p0.Orientation())
	}

	// row 0 runs P0 to P1, row 1 runs back
	test.That(t, targets[0].Pose.Point(), test.ShouldResemble, p0.Point())
	test.That(t, targets[3].Pose.Point(), test.ShouldResemble, p1.Point())
	test.That(t, targets[4].Pose.Point().X, test.ShouldAlmostEqual, 30, 1e-9)
	test.That(t, targets[7].Pose.Point().X, test.ShouldAlmostEqual, 0, 1e-9)

	// monotonic within a row
	for row := 0; row < 4; row++ {
		for c := 1; c < 4; c++ {
			prev := targets[4*row+c-1].Pose.Point().X
			cur := targets[4*row+c].Pose.Point().X
			if row%2 == 0 {
				test.That(t, cur, test.ShouldBeGreaterThan, prev)
			} else {
				test.That(t, cur, test.ShouldBeLessThan, prev)
			}
		}
	}

	last := targets[15].Pose.Point()
	test.That(t, last.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, last.Y, test.ShouldAlmostEqual, 30, 1e-9)
	test.That(t, last.Z, test.ShouldAlmostEqual, -101, 1e-9)
}

func TestAllRestartsAndStops(t *testing.T) {
	p0, p1, p2 := corners()
	g, err := New(p0, p1, p2, 3)
	test.That(t, err, test.ShouldBeNil)

	count := 0
	for range g.All() {
		count++
		if count == 2 {
			break
		}
	}
	test.That(t, count, test.ShouldEqual, 2)

	count = 0
	for range g.All() {
		count++
	}
	test.That(t, count, test.ShouldEqual, 9)
}

func TestDegenerate(t *testing.T) {
	p0, p1, p2 := corners()
	for _, n := range []int{-1, 0, 1} {
		_, err := New(p0, p1, p2, n)
		test.That(t, err, test.ShouldWrap, ErrDivisionDegenerate)
	}

	_, err := New(p0, p1, spatialmath.NewPoseFromPoint(r3.Vector{X: 60, Z: -100}), 3)
	test.That(t, err, test.ShouldBeError, ErrCollinearCorners)

	g, err := New(p0, p1, p2, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, func() { g.At(4) }, test.ShouldPanic)
}
