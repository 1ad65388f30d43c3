// Package fit solves the least squares problems used by calibration: plane
// fits, rigid registration and polynomial fits.
package fit

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// rankTolerance is the smallest singular value, relative to the largest, still counted toward rank.
const rankTolerance = 1e-10

// ErrInsufficientPoints is returned when there are too few independent points for a fit.
var ErrInsufficientPoints = errors.New("insufficient points")

// ErrorConvention selects how a point's distance to a fitted plane is measured.
type ErrorConvention int

const (
	// PointToPlane is the perpendicular distance |Ax + By + C - z| / sqrt(A² + B² + 1).
	PointToPlane ErrorConvention = iota
	// LegacyNormalization is |Ax + By + Cz| / sqrt(A² + B² + C²). It is not a
	// distance but matches offset curves recorded by older tools.
	LegacyNormalization
)

func (c ErrorConvention) String() string {
	switch c {
	case PointToPlane:
		return "point_to_plane"
	case LegacyNormalization:
		return "legacy"
	}
	return fmt.Sprintf("ErrorConvention(%d)", int(c))
}

// ParseErrorConvention converts the name returned by String back to a convention.
func ParseErrorConvention(s string) (ErrorConvention, error) {
	switch s {
	case "point_to_plane", "":
		return PointToPlane, nil
	case "legacy":
		return LegacyNormalization, nil
	}
	return PointToPlane, errors.Errorf("unknown plane error convention %q", s)
}

// PlaneModel is the plane z = Ax + By + C and the RMS of the residuals it was fitted with.
type PlaneModel struct {
	A, B, C  float64
	RMSError float64
}

// Z returns the plane height at x, y.
func (p PlaneModel) Z(x, y float64) float64 {
	return p.A*x + p.B*y + p.C
}

// Residual returns the error of pt under conv.
func (p PlaneModel) Residual(pt r3.Vector, conv ErrorConvention) float64 {
	var num, den float64
	switch conv {
	case LegacyNormalization:
		num = p.A*pt.X + p.B*pt.Y + p.C*pt.Z
		den = math.Sqrt(p.A*p.A + p.B*p.B + p.C*p.C)
	default:
		num = p.Z(pt.X, pt.Y) - pt.Z
		den = math.Sqrt(p.A*p.A + p.B*p.B + 1)
	}
	if den == 0 {
		return math.Abs(num)
	}
	return math.Abs(num) / den
}

func (p PlaneModel) String() string {
	return fmt.Sprintf("z = %.6gx + %.6gy + %.6g (rms %.6g)", p.A, p.B, p.C, p.RMSError)
}

// FitPlane solves [x y 1][A B C]ᵀ = z in the least squares sense and reports
// the RMS residual under conv. It needs at least three points whose x, y are
// not collinear.
func FitPlane(points []r3.Vector, conv ErrorConvention) (PlaneModel, error) {
	n := len(points)
	if n < 3 {
		return PlaneModel{}, errors.Wrapf(ErrInsufficientPoints, "plane fit needs 3 points, got %d", n)
	}
	design := mat.NewDense(n, 3, nil)
	z := mat.NewVecDense(n, nil)
	for i, pt := range points {
		design.Set(i, 0, pt.X)
		design.Set(i, 1, pt.Y)
		design.Set(i, 2, 1)
		z.SetVec(i, pt.Z)
	}
	if rank := matrixRank(design); rank < 3 {
		return PlaneModel{}, errors.Wrapf(ErrInsufficientPoints, "x, y of %d points are collinear (rank %d)", n, rank)
	}

	var qr mat.QR
	qr.Factorize(design)
	var coeffs mat.VecDense
	if err := qr.SolveVecTo(&coeffs, false, z); err != nil {
		return PlaneModel{}, errors.Wrap(err, "plane least squares")
	}
	model := PlaneModel{A: coeffs.AtVec(0), B: coeffs.AtVec(1), C: coeffs.AtVec(2)}
	model.RMSError = RMS(points, func(pt r3.Vector) float64 { return model.Residual(pt, conv) })
	return model, nil
}

// RMS returns the root mean square of residual over points.
func RMS(points []r3.Vector, residual func(r3.Vector) float64) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, pt := range points {
		r := residual(pt)
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(points)))
}

// matrixRank counts singular values above rankTolerance relative to the largest.
func matrixRank(m mat.Matrix) int {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDNone); !ok {
		return 0
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[0] == 0 {
		return 0
	}
	rank := 0
	for _, v := range values {
		if v > rankTolerance*values[0] {
			rank++
		}
	}
	return rank
}
