package fit

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Polynomial is p(x) = Σ Coeffs[k]·t^k with t = (x − Shift) / Scale. The
// shift and scale keep the Vandermonde system well conditioned for narrow
// offset windows.
type Polynomial struct {
	Coeffs []float64
	Shift  float64
	Scale  float64
}

// Degree returns the polynomial degree.
func (p Polynomial) Degree() int {
	return len(p.Coeffs) - 1
}

// Eval returns p(x).
func (p Polynomial) Eval(x float64) float64 {
	t := (x - p.Shift) / p.Scale
	var y float64
	for k := len(p.Coeffs) - 1; k >= 0; k-- {
		y = y*t + p.Coeffs[k]
	}
	return y
}

// Coefficients returns the coefficients in x, lowest power first.
func (p Polynomial) Coefficients() []float64 {
	n := len(p.Coeffs)
	out := make([]float64, n)
	for k, c := range p.Coeffs {
		// c·((x − s)/h)^k = c/h^k · Σ_j binom(k, j) x^j (−s)^(k−j)
		scaled := c / math.Pow(p.Scale, float64(k))
		for j := 0; j <= k; j++ {
			out[j] += scaled * binomial(k, j) * math.Pow(-p.Shift, float64(k-j))
		}
	}
	return out
}

// Vertex returns the extremum of a degree 2 polynomial and whether it is a
// minimum. ok is false for other degrees and for flat parabolas.
func (p Polynomial) Vertex() (x, y float64, isMin, ok bool) {
	if p.Degree() != 2 || p.Coeffs[2] == 0 {
		return 0, 0, false, false
	}
	t := -p.Coeffs[1] / (2 * p.Coeffs[2])
	x = p.Shift + p.Scale*t
	return x, p.Eval(x), p.Coeffs[2] > 0, true
}

// PolyFit fits a polynomial of the given degree to (xs, ys) by least squares.
func PolyFit(xs, ys []float64, degree int) (Polynomial, error) {
	if degree < 0 {
		return Polynomial{}, errors.Errorf("invalid polynomial degree %d", degree)
	}
	if len(xs) != len(ys) {
		return Polynomial{}, errors.Errorf("x and y differ in length: %d and %d", len(xs), len(ys))
	}
	n := len(xs)
	if n < degree+1 {
		return Polynomial{}, errors.Wrapf(ErrInsufficientPoints, "degree %d fit needs %d points, got %d", degree, degree+1, n)
	}

	shift := floats.Sum(xs) / float64(n)
	scale := math.Max(math.Abs(floats.Max(xs)-shift), math.Abs(floats.Min(xs)-shift))
	if scale == 0 {
		scale = 1
	}

	vander := mat.NewDense(n, degree+1, nil)
	for i, x := range xs {
		t := (x - shift) / scale
		v := 1.0
		for k := 0; k <= degree; k++ {
			vander.Set(i, k, v)
			v *= t
		}
	}
	if rank := matrixRank(vander); rank < degree+1 {
		return Polynomial{}, errors.Wrapf(ErrInsufficientPoints, "only %d distinct x values for degree %d", rank, degree)
	}

	var qr mat.QR
	qr.Factorize(vander)
	var coeffs mat.VecDense
	if err := qr.SolveVecTo(&coeffs, false, mat.NewVecDense(n, append([]float64(nil), ys...))); err != nil {
		return Polynomial{}, errors.Wrap(err, "polynomial least squares")
	}
	return Polynomial{Coeffs: mat.Col(nil, 0, &coeffs), Shift: shift, Scale: scale}, nil
}

func binomial(n, k int) float64 {
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}

func sqrtMean(sum float64, n int) float64 {
	return math.Sqrt(sum / float64(n))
}
