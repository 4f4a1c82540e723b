package portfolio

import (
	"gonum.org/v1/gonum/mat"

	"corrMinvar/internal/linalg"
)

// InitialAllocation seeds the solvers with a feasible, non-negative weight vector.
//
// An instrument whose mean equals the target gets everything. Otherwise each instrument
// is weighted by 1/|mean-target|, averaged within its side of the target, so that the
// above-target and below-target groups pull the weighted mean back onto the target.
func InitialAllocation(instruments []Instrument, target float64) []float64 {
	n := len(instruments)
	weights := make([]float64, n)
	for i, in := range instruments {
		if in.Mean-target == 0 {
			weights[i] = 1
			return weights
		}
	}

	above, below := 0, 0
	for _, in := range instruments {
		if in.Mean-target > 0 {
			above++
		} else {
			below++
		}
	}
	for i, in := range instruments {
		delta := in.Mean - target
		if delta > 0 {
			weights[i] = 1 / delta / float64(above)
		} else {
			weights[i] = -1 / delta / float64(below)
		}
	}
	return linalg.NormalizeL1(weights)
}

// PortfolioVariance is Σ var_i·w_i² + Σ_{i≠j} cov_ij·w_i·w_j, taking the diagonal from the
// instruments' own variances.
func PortfolioVariance(instruments []Instrument, cov mat.Symmetric, weights []float64) float64 {
	total := 0.0
	for i := range instruments {
		total += instruments[i].Variance * weights[i] * weights[i]
		for j := range instruments {
			if i != j {
				total += cov.At(i, j) * weights[i] * weights[j]
			}
		}
	}
	return total
}
