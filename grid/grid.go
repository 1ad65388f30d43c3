// Package grid generates the boustrophedon scan of palpation targets over the
// quadrilateral spanned by three corner poses.
package grid

import (
	"fmt"
	"iter"

	"github.com/pkg/errors"

	"github.com/dvrk-tools/palpcal/spatialmath"
)

var (
	// ErrDivisionDegenerate is returned for grids with fewer than two samples per side.
	ErrDivisionDegenerate = errors.New("grid needs at least 2 samples per side")

	// ErrCollinearCorners is returned when the corners do not span an area.
	ErrCollinearCorners = errors.New("grid corners are collinear")
)

// minCornerArea is the smallest parallelogram area, in mm², accepted for the corners.
const minCornerArea = 1e-6

// Target is one palpation location.
type Target struct {
	Row  int
	Col  int
	Pose spatialmath.Pose
}

func (t Target) String() string {
	pt := t.Pose.Point()
	return fmt.Sprintf("(%d, %d) at [%.3f %.3f %.3f]", t.Row, t.Col, pt.X, pt.Y, pt.Z)
}

// Grid is an N by N scan pattern. P0 to P1 is the first row and P0 to P2 the
// first column. Even rows run from the P0 side, odd rows run back.
type Grid struct {
	p0, p1, p2 spatialmath.Pose
	n          int
}

// New returns the grid spanned by p0, p1 and p2 with n samples per side.
func New(p0, p1, p2 spatialmath.Pose, n int) (*Grid, error) {
	if n < 2 {
		return nil, errors.Wrapf(ErrDivisionDegenerate, "got %d", n)
	}
	edgeRow := p1.Point().Sub(p0.Point())
	edgeCol := p2.Point().Sub(p0.Point())
	if edgeRow.Cross(edgeCol).Norm() < minCornerArea {
		return nil, ErrCollinearCorners
	}
	return &Grid{p0: p0, p1: p1, p2: p2, n: n}, nil
}

// N returns the samples per side.
func (g *Grid) N() int {
	return g.n
}

// Len returns the number of targets.
func (g *Grid) Len() int {
	return g.n * g.n
}

// At returns the k-th target in traversal order. It panics if k is out of range.
func (g *Grid) At(k int) Target {
	if k < 0 || k >= g.Len() {
		panic(fmt.Sprintf("grid index %d out of range [0, %d)", k, g.Len()))
	}
	row, col := k/g.n, k%g.n
	if row%2 == 1 {
		col = g.n - 1 - col
	}
	last := float64(g.n - 1)
	alongCol := g.p2.Point().Sub(g.p0.Point()).Mul(float64(row) / last)
	leftside := g.p0.Point().Add(alongCol)
	rightside := g.p1.Point().Add(alongCol)
	pt := leftside.Add(rightside.Sub(leftside).Mul(float64(col) / last))
	return Target{Row: row, Col: col, Pose: spatialmath.PoseWithPoint(g.p0, pt)}
}

// All yields every target with its traversal index. Each call starts over.
func (g *Grid) All() iter.Seq2[int, Target] {
	return func(yield func(int, Target) bool) {
		for k := 0; k < g.Len(); k++ {
			if !yield(k, g.At(k)) {
				return
			}
		}
	}
}
