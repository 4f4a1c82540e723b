package portfolio

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"corrMinvar/internal/linalg"
)

const (
	DefaultGradientTolerance = 1e-6
	DefaultMaxIterations     = 1000

	maxStepHalvings = 30
)

// ProjectedGradient is steepest descent on wᵀCw with the direction projected off the
// mean-return vector and the Rayleigh-quotient step α = rᵀr / rᵀCr. Iterates are
// L1-normalized. A step that would raise the variance is halved until it does not.
type ProjectedGradient struct {
	Tolerance     float64
	MaxIterations int

	// OnIterate, when set, sees wᵀCw after every accepted iterate.
	OnIterate func(iteration int, variance float64)
}

// NewProjectedGradient returns a solver with the default tolerance and iteration cap.
func NewProjectedGradient() *ProjectedGradient {
	return &ProjectedGradient{Tolerance: DefaultGradientTolerance, MaxIterations: DefaultMaxIterations}
}

func (g *ProjectedGradient) Optimize(instruments []Instrument, cov *mat.SymDense, initial []float64) (Allocation, error) {
	n := len(instruments)
	weights := make([]float64, n)
	copy(weights, initial)

	means := make([]float64, n)
	for i, in := range instruments {
		means[i] = in.Mean
	}
	unitMean := linalg.NormalizeL2(means)

	alloc := Allocation{}
	current := linalg.QuadForm(cov, weights, weights)
	for alloc.Iterations < g.MaxIterations {
		r := linalg.Scale(-1, linalg.MulVec(cov, weights))
		rr := linalg.Dot(r, r)
		if rr == 0 {
			alloc.Converged = true
			break
		}
		rcr := linalg.QuadForm(cov, r, r)
		if rcr == 0 {
			alloc.Weights = weights
			alloc.Variance = PortfolioVariance(instruments, cov, weights)
			return alloc, fmt.Errorf("projected gradient iteration %d: %w", alloc.Iterations, ErrIllConditioned)
		}
		direction := linalg.RejectComponent(r, unitMean)

		next, variance, ok := g.descend(cov, weights, direction, rr/rcr, current)
		if !ok {
			alloc.Converged = true
			break
		}
		change := linalg.MaxAbsDiff(next, weights)
		weights, current = next, variance
		alloc.Iterations++
		alloc.Accepted++
		if g.OnIterate != nil {
			g.OnIterate(alloc.Iterations, current)
		}
		if change < g.Tolerance {
			alloc.Converged = true
			break
		}
	}

	alloc.Weights = weights
	alloc.Variance = PortfolioVariance(instruments, cov, weights)
	return alloc, nil
}

// descend tries normalize(w + α·a), halving α until wᵀCw does not increase.
func (g *ProjectedGradient) descend(cov *mat.SymDense, weights, direction []float64, alpha, current float64) ([]float64, float64, bool) {
	for h := 0; h <= maxStepHalvings; h++ {
		candidate := linalg.NormalizeL1(linalg.Axpy(alpha, direction, weights))
		if v := linalg.QuadForm(cov, candidate, candidate); v <= current {
			return candidate, v, true
		}
		alpha /= 2
	}
	return nil, 0, false
}
