package linalg

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Present returns the non-NaN values of xs in order.
func Present(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// NanMean is the arithmetic mean of the non-missing values; NaN when none are present.
func NanMean(xs []float64) float64 {
	vals := Present(xs)
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// NanVariance is the Bessel-corrected sample variance of the non-missing values.
// Fewer than two observations give 0.
func NanVariance(xs []float64) float64 {
	vals := Present(xs)
	if len(vals) < 2 {
		return 0
	}
	return stat.Variance(vals, nil)
}
