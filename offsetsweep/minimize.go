package offsetsweep

import (
	"gonum.org/v1/gonum/floats"

	"github.com/dvrk-tools/palpcal/fit"
)

// OffsetResult is the selected corrective offset.
type OffsetResult struct {
	// Value is the chosen offset: the curve minimum, or the polynomial vertex when smoothing was accepted.
	Value float64
	// CurveMinimumIndex is the index of the first smallest error on the curve.
	CurveMinimumIndex int
	// MinimumError is the error at CurveMinimumIndex.
	MinimumError float64
	// Smoothed reports whether Value is a polynomial vertex.
	Smoothed bool
	// Polynomial is the smoothing fit, nil without smoothing.
	Polynomial *fit.Polynomial
}

// Minimize returns the first candidate with the smallest error.
func Minimize(curve Curve) (OffsetResult, error) {
	if len(curve) == 0 {
		return OffsetResult{}, ErrEmptyCurve
	}
	best := floats.MinIdx(curve.Errors())
	return OffsetResult{
		Value:             curve[best].Offset,
		CurveMinimumIndex: best,
		MinimumError:      curve[best].Error,
	}, nil
}

// Smooth fits a polynomial of the given degree to the curve. For degree 2 the
// vertex replaces the raw minimum when the parabola opens upward and the
// vertex lies within the curve. Otherwise the raw minimum is kept.
func Smooth(curve Curve, degree int) (OffsetResult, error) {
	res, err := Minimize(curve)
	if err != nil {
		return res, err
	}
	poly, err := fit.PolyFit(curve.Offsets(), curve.Errors(), degree)
	if err != nil {
		return res, err
	}
	res.Polynomial = &poly
	x, _, isMin, ok := poly.Vertex()
	if ok && isMin && x >= curve[0].Offset && x <= curve[len(curve)-1].Offset {
		res.Value = x
		res.Smoothed = true
	}
	return res, nil
}
