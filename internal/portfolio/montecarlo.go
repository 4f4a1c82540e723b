package portfolio

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultTrials    = 100000
	DefaultStepScale = 1e-3
)

// MonteCarlo is a random local search over three-instrument moves that keep both the
// weight sum and the weighted mean return fixed. A move is kept only if it lowers wᵀCw
// and leaves every weight non-negative.
type MonteCarlo struct {
	Trials    int
	StepScale float64
	Rand      *rand.Rand
}

// NewMonteCarlo returns a solver with the default trial budget and step scale.
func NewMonteCarlo(rng *rand.Rand) *MonteCarlo {
	return &MonteCarlo{Trials: DefaultTrials, StepScale: DefaultStepScale, Rand: rng}
}

func (m *MonteCarlo) Optimize(instruments []Instrument, cov *mat.SymDense, initial []float64) (Allocation, error) {
	n := len(instruments)
	weights := make([]float64, n)
	copy(weights, initial)

	alloc := Allocation{}
	if n >= 3 && m.Trials > 0 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		move := make([]float64, n)
		for trial := 0; trial < m.Trials; trial++ {
			alloc.Iterations++
			i, j, k := m.pickThree(order)
			if !perturbation(instruments, i, j, k, m.Rand.Float64()*m.StepScale, move) {
				continue
			}
			if weights[i]+move[i] < 0 || weights[j]+move[j] < 0 || weights[k]+move[k] < 0 {
				clearMove(move, i, j, k)
				continue
			}
			if varianceChange(cov, weights, move, [3]int{i, j, k}) < 0 {
				weights[i] += move[i]
				weights[j] += move[j]
				weights[k] += move[k]
				alloc.Accepted++
			}
			clearMove(move, i, j, k)
		}
	}

	alloc.Weights = weights
	alloc.Variance = PortfolioVariance(instruments, cov, weights)
	alloc.Converged = true
	return alloc, nil
}

// pickThree draws three distinct indices uniformly by a partial Fisher-Yates shuffle of order.
func (m *MonteCarlo) pickThree(order []int) (int, int, int) {
	n := len(order)
	for k := 0; k < 3; k++ {
		r := k + m.Rand.IntN(n-k)
		order[k], order[r] = order[r], order[k]
	}
	return order[0], order[1], order[2]
}

// perturbation fills move at i, j, k so that the three components sum to zero and their
// mean-weighted sum is zero. It reports false when the means make that impossible.
func perturbation(instruments []Instrument, i, j, k int, step float64, move []float64) bool {
	mi, mj, mk := instruments[i].Mean, instruments[j].Mean, instruments[k].Mean
	if mk-mi == 0 {
		return false
	}
	denom := (mj-mi)/(mk-mi) - 1
	if denom == 0 {
		return false
	}
	move[i] = step
	move[j] = step / denom
	move[k] = -move[i] - move[j]
	return true
}

// varianceChange is (w+a)ᵀC(w+a) − wᵀCw = aᵀC(2w+a), summed over the three rows where a is non-zero.
func varianceChange(cov mat.Symmetric, weights, move []float64, idx [3]int) float64 {
	delta := 0.0
	for _, p := range idx {
		row := 0.0
		for q := range weights {
			row += cov.At(p, q) * (2*weights[q] + move[q])
		}
		delta += move[p] * row
	}
	return delta
}

func clearMove(move []float64, i, j, k int) {
	move[i], move[j], move[k] = 0, 0, 0
}
