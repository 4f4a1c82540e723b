package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"corrMinvar/internal/linalg"
)

func TestInitialAllocation_ExactMatchIsOneHot(t *testing.T) {
	instruments := instrumentsFor([]float64{5, 10, 15}, nil)
	assert.Equal(t, []float64{0, 1, 0}, InitialAllocation(instruments, 10))
}

func TestInitialAllocation_FirstExactMatchWins(t *testing.T) {
	instruments := instrumentsFor([]float64{10, 10, 3}, nil)
	assert.Equal(t, []float64{1, 0, 0}, InitialAllocation(instruments, 10))
}

func TestInitialAllocation_TwoGroupsHitTarget(t *testing.T) {
	instruments := instrumentsFor([]float64{5, 8, 14, 20}, nil)

	w := InitialAllocation(instruments, 10)

	require.Len(t, w, 4)
	assert.InDeltaSlice(t, []float64{0.1 / 0.525, 0.25 / 0.525, 0.125 / 0.525, 0.05 / 0.525}, w, 1e-12)
	assert.InDelta(t, 1.0, linalg.L1Norm(w), 1e-12)
	mean := 0.0
	for i, in := range instruments {
		assert.GreaterOrEqual(t, w[i], 0.0)
		mean += in.Mean * w[i]
	}
	assert.InDelta(t, 10.0, mean, 1e-12)
}

func TestInitialAllocation_OneSidedGroup(t *testing.T) {
	w := InitialAllocation(instrumentsFor([]float64{12, 15}, nil), 10)
	assert.InDeltaSlice(t, []float64{0.25 / 0.35, 0.1 / 0.35}, w, 1e-12)
	for _, v := range w {
		assert.False(t, math.IsNaN(v))
	}
}

func TestInitialAllocation_Empty(t *testing.T) {
	assert.Empty(t, InitialAllocation(nil, 10))
}

func TestPortfolioVariance_MatchesQuadForm(t *testing.T) {
	rng := newRand(19)
	for trial := 0; trial < 20; trial++ {
		n := 2 + rng.IntN(8)
		cov := randomPSD(rng, n)
		instruments := instrumentsFor(make([]float64, n), cov)
		w := make([]float64, n)
		for i := range w {
			w[i] = rng.Float64()
		}
		w = linalg.NormalizeL1(w)

		assert.InDelta(t, linalg.QuadForm(cov, w, w), PortfolioVariance(instruments, cov, w), 1e-10)
	}
}

func TestPortfolioVariance_UsesInstrumentVarianceOnDiagonal(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 1})
	instruments := []Instrument{{Variance: 4}, {Variance: 9}}
	// 4·0.25 + 9·0.25 + 2·0.5·0.25
	assert.InDelta(t, 3.5, PortfolioVariance(instruments, cov, []float64{0.5, 0.5}), 1e-15)
}
