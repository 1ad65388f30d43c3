package fit

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/dvrk-tools/palpcal/spatialmath"
)

// ErrDegenerateRegistration is returned when point sets cannot determine a rotation.
var ErrDegenerateRegistration = errors.New("degenerate registration")

// RigidTransform maps source points onto destination points: dst = R·src + t.
type RigidTransform struct {
	Rotation    *spatialmath.RotationMatrix
	Translation r3.Vector
	// Residual is the RMS distance between mapped source points and their destinations.
	Residual float64
}

// Apply maps a source frame point into the destination frame.
func (rt RigidTransform) Apply(p r3.Vector) r3.Vector {
	return rt.Rotation.MulVec(p).Add(rt.Translation)
}

// ApplyInverse maps a destination frame point back into the source frame.
func (rt RigidTransform) ApplyInverse(p r3.Vector) r3.Vector {
	return rt.Rotation.Transpose().MulVec(p.Sub(rt.Translation))
}

// Pose returns the transform as a pose.
func (rt RigidTransform) Pose() spatialmath.Pose {
	return spatialmath.NewPose(rt.Translation, rt.Rotation)
}

// RegisterRigid finds the rotation and translation minimizing Σ‖R·src_i + t − dst_i‖²
// with the Kabsch method. The sets must pair up, hold at least three points and
// the source must not be collinear. Coplanar sets are accepted.
func RegisterRigid(src, dst []r3.Vector) (RigidTransform, error) {
	if len(src) != len(dst) {
		return RigidTransform{}, errors.Wrapf(ErrDegenerateRegistration, "point sets differ in size: %d and %d", len(src), len(dst))
	}
	m := len(src)
	if m < 3 {
		return RigidTransform{}, errors.Wrapf(ErrDegenerateRegistration, "need at least 3 points, got %d", m)
	}

	cs, cd := centroid(src), centroid(dst)
	centered := mat.NewDense(m, 3, nil)
	h := mat.NewDense(3, 3, nil)
	for i := range src {
		a := src[i].Sub(cs)
		b := dst[i].Sub(cd)
		centered.SetRow(i, []float64{a.X, a.Y, a.Z})
		av := []float64{a.X, a.Y, a.Z}
		bv := []float64{b.X, b.Y, b.Z}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				h.Set(r, c, h.At(r, c)+av[r]*bv[c])
			}
		}
	}
	if rank := matrixRank(centered); rank < 2 {
		return RigidTransform{}, errors.Wrapf(ErrDegenerateRegistration, "source points are collinear (rank %d)", rank)
	}

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return RigidTransform{}, errors.Wrap(ErrDegenerateRegistration, "svd of cross covariance failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var vut mat.Dense
	vut.Mul(&v, u.T())
	d := 1.0
	if mat.Det(&vut) < 0 {
		d = -1
	}
	fix := mat.NewDiagDense(3, []float64{1, 1, d})
	var rot mat.Dense
	rot.Product(&v, fix, u.T())

	rotation := spatialmath.NewRotationMatrixFromDense(&rot)
	rt := RigidTransform{
		Rotation:    rotation,
		Translation: cd.Sub(rotation.MulVec(cs)),
	}
	var sum float64
	for i := range src {
		diff := rt.Apply(src[i]).Sub(dst[i]).Norm2()
		sum += diff
	}
	rt.Residual = sqrtMean(sum, m)
	return rt, nil
}

func centroid(pts []r3.Vector) r3.Vector {
	var c r3.Vector
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Mul(1 / float64(len(pts)))
}
