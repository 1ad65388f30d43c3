package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RotationMatrix is a 3x3 rotation stored in row major order.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates a rotation matrix from 9 row major values.
// The values are not checked for orthonormality.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.Errorf("input slice has %d elements, need exactly 9", len(m))
	}
	var rm RotationMatrix
	copy(rm.mat[:], m)
	return &rm, nil
}

// NewRotationMatrixFromDense copies the top left 3x3 block of m.
func NewRotationMatrixFromDense(m mat.Matrix) *RotationMatrix {
	var rm RotationMatrix
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			rm.mat[3*row+col] = m.At(row, col)
		}
	}
	return &rm
}

// IdentityRotation returns the rotation that does nothing.
func IdentityRotation() *RotationMatrix {
	return &RotationMatrix{mat: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// RotationAboutX returns a rotation of theta radians about the x axis.
func RotationAboutX(theta float64) *RotationMatrix {
	s, c := math.Sincos(theta)
	return &RotationMatrix{mat: [9]float64{1, 0, 0, 0, c, -s, 0, s, c}}
}

// RotationAboutY returns a rotation of theta radians about the y axis.
func RotationAboutY(theta float64) *RotationMatrix {
	s, c := math.Sincos(theta)
	return &RotationMatrix{mat: [9]float64{c, 0, s, 0, 1, 0, -s, 0, c}}
}

// RotationAboutZ returns a rotation of theta radians about the z axis.
func RotationAboutZ(theta float64) *RotationMatrix {
	s, c := math.Sincos(theta)
	return &RotationMatrix{mat: [9]float64{c, -s, 0, s, c, 0, 0, 0, 1}}
}

// NewRotationFromAxisAngle returns a rotation of theta radians about axis using
// Rodrigues' formula. A zero axis yields the identity.
func NewRotationFromAxisAngle(axis r3.Vector, theta float64) *RotationMatrix {
	if axis.Norm() == 0 {
		return IdentityRotation()
	}
	k := axis.Normalize()
	s, c := math.Sincos(theta)
	v := 1 - c
	return &RotationMatrix{mat: [9]float64{
		c + k.X*k.X*v, k.X*k.Y*v - k.Z*s, k.X*k.Z*v + k.Y*s,
		k.Y*k.X*v + k.Z*s, c + k.Y*k.Y*v, k.Y*k.Z*v - k.X*s,
		k.Z*k.X*v - k.Y*s, k.Z*k.Y*v + k.X*s, c + k.Z*k.Z*v,
	}}
}

// At returns the value at row, col.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[3*row+col]
}

// Row returns row i as a vector.
func (rm *RotationMatrix) Row(i int) r3.Vector {
	return r3.Vector{X: rm.mat[3*i], Y: rm.mat[3*i+1], Z: rm.mat[3*i+2]}
}

// Col returns column j as a vector.
func (rm *RotationMatrix) Col(j int) r3.Vector {
	return r3.Vector{X: rm.mat[j], Y: rm.mat[j+3], Z: rm.mat[j+6]}
}

// Mul returns rm * other.
func (rm *RotationMatrix) Mul(other *RotationMatrix) *RotationMatrix {
	var out RotationMatrix
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out.mat[3*row+col] = rm.Row(row).Dot(other.Col(col))
		}
	}
	return &out
}

// MulVec rotates v.
func (rm *RotationMatrix) MulVec(v r3.Vector) r3.Vector {
	return r3.Vector{X: rm.Row(0).Dot(v), Y: rm.Row(1).Dot(v), Z: rm.Row(2).Dot(v)}
}

// Transpose returns the transpose, which for a rotation is also the inverse.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	var out RotationMatrix
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out.mat[3*col+row] = rm.mat[3*row+col]
		}
	}
	return &out
}

// Determinant returns the determinant; +1 for a proper rotation.
func (rm *RotationMatrix) Determinant() float64 {
	return rm.Row(0).Dot(rm.Row(1).Cross(rm.Row(2)))
}

// Dense returns the rotation as a gonum matrix.
func (rm *RotationMatrix) Dense() *mat.Dense {
	return mat.NewDense(3, 3, append([]float64(nil), rm.mat[:]...))
}

// RotationMatrixAlmostEqual reports whether every entry of a and b differs by at most epsilon.
func RotationMatrixAlmostEqual(a, b *RotationMatrix, epsilon float64) bool {
	for i := range a.mat {
		if math.Abs(a.mat[i]-b.mat[i]) > epsilon {
			return false
		}
	}
	return true
}

func (rm *RotationMatrix) String() string {
	return fmt.Sprintf("[%.6g %.6g %.6g; %.6g %.6g %.6g; %.6g %.6g %.6g]",
		rm.mat[0], rm.mat[1], rm.mat[2], rm.mat[3], rm.mat[4], rm.mat[5], rm.mat[6], rm.mat[7], rm.mat[8])
}
