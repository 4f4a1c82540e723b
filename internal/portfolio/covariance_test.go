package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCovariance_SymmetricWithMissingData(t *testing.T) {
	rng := newRand(3)
	for trial := 0; trial < 25; trial++ {
		n := 2 + rng.IntN(6)
		periods := 3 + rng.IntN(10)
		returns := make([][]float64, n)
		for i := range returns {
			returns[i] = make([]float64, periods)
			for p := range returns[i] {
				if rng.Float64() < 0.2 {
					returns[i][p] = math.NaN()
					continue
				}
				returns[i][p] = rng.NormFloat64() * 0.1
			}
		}
		instruments := ComputeMeans(make([]Instrument, n), returns)

		cov := Covariance(instruments, returns)

		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				assert.Equal(t, cov.At(i, j), cov.At(j, i))
			}
		}
	}
}

func TestCovariance_DiagonalMatchesVariance(t *testing.T) {
	nan := math.NaN()
	returns := [][]float64{{0.1, nan, 0.2, 0.3}, {0.05, 0.02, nan, -0.01}}
	instruments := ComputeVariances(ComputeMeans([]Instrument{{Ticker: "A"}, {Ticker: "B"}}, returns), returns)

	cov := Covariance(instruments, returns)

	assert.InDelta(t, instruments[0].Variance, cov.At(0, 0), 1e-12)
	assert.InDelta(t, instruments[1].Variance, cov.At(1, 1), 1e-12)
}

func TestCovariance_UsesOnlyJointObservations(t *testing.T) {
	nan := math.NaN()
	returns := [][]float64{
		{0.1, 0.3, nan, 0.2},
		{0.2, 0.0, 0.5, nan},
	}
	instruments := []Instrument{{Ticker: "A", Mean: 20}, {Ticker: "B", Mean: 10}}

	cov := Covariance(instruments, returns)

	// joint periods 0 and 1: (0.1-0.2)(0.2-0.1) + (0.3-0.2)(0.0-0.1) = -0.02, /1, ×100
	assert.InDelta(t, -2.0, cov.At(0, 1), 1e-12)
}

func TestCovariance_InsufficientJointDataIsZero(t *testing.T) {
	nan := math.NaN()
	returns := [][]float64{
		{0.1, nan, 0.3},
		{nan, 0.2, 0.4},
	}
	instruments := ComputeMeans([]Instrument{{Ticker: "A"}, {Ticker: "B"}}, returns)

	cov := Covariance(instruments, returns)

	assert.Equal(t, 0.0, cov.At(0, 1))
	assert.Equal(t, 0.0, cov.At(1, 0))
}

func TestCovariance_IdenticalSeriesArePerfectlyCorrelated(t *testing.T) {
	series := []float64{0.1, -0.05, 0.2, 0.07}
	returns := [][]float64{series, append([]float64(nil), series...)}
	instruments := ComputeVariances(ComputeMeans([]Instrument{{Ticker: "A"}, {Ticker: "B"}}, returns), returns)

	cov := Covariance(instruments, returns)
	require.NotNil(t, cov)
	assert.InDelta(t, cov.At(0, 0), cov.At(1, 1), 1e-15)
	assert.InDelta(t, cov.At(0, 0), cov.At(0, 1), 1e-15)

	corr := Correlation(instruments, cov)
	assert.InDelta(t, 1.0, corr.At(0, 1), 1e-12)
	assert.InDelta(t, 1.0, corr.At(0, 0), 1e-12)
}

func TestCovariance_Empty(t *testing.T) {
	assert.Nil(t, Covariance(nil, nil))
}

func TestCorrelation_ZeroVarianceIsUndefined(t *testing.T) {
	returns := [][]float64{{0.25, 0.25, 0.25}, {0.1, 0.2, 0.3}}
	instruments := ComputeVariances(ComputeMeans([]Instrument{{Ticker: "FLAT"}, {Ticker: "MOVE"}}, returns), returns)

	corr := Correlation(instruments, Covariance(instruments, returns))

	assert.True(t, math.IsNaN(corr.At(0, 0)))
	assert.True(t, math.IsNaN(corr.At(0, 1)))
	assert.InDelta(t, 1.0, corr.At(1, 1), 1e-12)
}
