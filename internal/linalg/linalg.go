// Package linalg is the small vector/matrix layer the optimizers are written against.
// Everything is backed by gonum; slices in, fresh slices out, inputs are never mutated.
package linalg

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Dot returns xᵀy.
func Dot(x, y []float64) float64 {
	return floats.Dot(x, y)
}

// L1Norm returns the sum of absolute values of x.
func L1Norm(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Norm(x, 1)
}

// L2Norm returns the Euclidean length of x.
func L2Norm(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Norm(x, 2)
}

// NormalizeL1 divides x by its L1 norm. A zero norm is treated as 1, so a zero
// vector comes back unchanged instead of turning into NaNs.
func NormalizeL1(x []float64) []float64 {
	return scaledCopy(x, L1Norm(x))
}

// NormalizeL2 divides x by its Euclidean norm, with the same zero-norm rule as NormalizeL1.
func NormalizeL2(x []float64) []float64 {
	return scaledCopy(x, L2Norm(x))
}

func scaledCopy(x []float64, norm float64) []float64 {
	if norm == 0 {
		norm = 1
	}
	out := make([]float64, len(x))
	copy(out, x)
	floats.Scale(1/norm, out)
	return out
}

// Axpy returns y + alpha*x.
func Axpy(alpha float64, x, y []float64) []float64 {
	out := make([]float64, len(y))
	copy(out, y)
	floats.AddScaled(out, alpha, x)
	return out
}

// Scale returns alpha*x.
func Scale(alpha float64, x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	floats.Scale(alpha, out)
	return out
}

// RejectComponent removes from x its component along the unit vector u: x − (uᵀx)u.
func RejectComponent(x, u []float64) []float64 {
	return Axpy(-Dot(u, x), u, x)
}

// MaxAbsDiff returns max_i |x_i − y_i|.
func MaxAbsDiff(x, y []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Distance(x, y, math.Inf(1))
}

// MulVec returns A·x.
func MulVec(a mat.Matrix, x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	var out mat.VecDense
	out.MulVec(a, mat.NewVecDense(len(x), x))
	return out.RawVector().Data
}

// QuadForm returns xᵀ·A·y.
func QuadForm(a mat.Matrix, x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 {
		return 0
	}
	return mat.Inner(mat.NewVecDense(len(x), x), a, mat.NewVecDense(len(y), y))
}
