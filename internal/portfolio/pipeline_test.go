package portfolio

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSeries() []PriceSeries {
	return []PriceSeries{
		{Ticker: "AAA", Closes: closesFromReturns(20, 0.02, 0.06, 0.04, 0.04)},
		{Ticker: "BBB", Closes: closesFromReturns(30, 0.10, 0.06, 0.12, 0.04)},
		{Ticker: "BIG", Closes: closesFromReturns(500, 0.10, 0.10, 0.10, 0.10)},
		{Ticker: "CCC", Closes: closesFromReturns(15, 0.13, 0.20, 0.06, 0.13)},
		{Ticker: "HOT", Closes: closesFromReturns(10, 0.40, 0.40, 0.40, 0.40)},
		{Ticker: "DDD", Closes: closesFromReturns(12, 0.30, 0.04, 0.17, 0.17)},
	}
}

func TestRun_MonteCarlo(t *testing.T) {
	opts := DefaultOptions(10)
	opts.Trials = 5000

	res, err := Run(sampleSeries(), opts, newRand(2024))

	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC", "DDD"}, res.Tickers())
	assert.Equal(t, MethodMonteCarlo, res.Method)
	require.Len(t, res.Returns, 4)

	total := 0.0
	for _, in := range res.Instruments {
		assert.GreaterOrEqual(t, in.Position, 0.0)
		assert.Greater(t, in.Variance, 0.0)
		total += in.Position
	}
	assert.InDelta(t, 100.0, total, 1e-6)
	assert.InDelta(t, 10.0, res.ExpectedReturn(), 1e-6)

	for i := range res.Instruments {
		assert.InDelta(t, 1.0, res.Correlation.At(i, i), 1e-9)
		assert.InDelta(t, res.Instruments[i].Variance, res.Covariance.At(i, i), 1e-12)
	}
	assert.LessOrEqual(t, res.Allocation.Variance, PortfolioVariance(res.Instruments, res.Covariance, res.Initial)+1e-12)
}

func TestRun_Reproducible(t *testing.T) {
	opts := DefaultOptions(10)
	opts.Trials = 3000

	a, err := Run(sampleSeries(), opts, newRand(5))
	require.NoError(t, err)
	b, err := Run(sampleSeries(), opts, newRand(5))
	require.NoError(t, err)

	assert.Equal(t, a.Allocation.Weights, b.Allocation.Weights)
}

func TestRun_ProjectedGradient(t *testing.T) {
	opts := DefaultOptions(10)
	opts.Method = MethodProjectedGradient

	res, err := Run(sampleSeries(), opts, nil)

	require.NoError(t, err)
	gross := 0.0
	for _, in := range res.Instruments {
		gross += math.Abs(in.Position)
	}
	assert.InDelta(t, 100.0, gross, 1e-6)
}

func TestRun_EmptyPortfolio(t *testing.T) {
	opts := DefaultOptions(90)

	_, err := Run(sampleSeries(), opts, newRand(1))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyPortfolio))
}

func TestRun_MonteCarloNeedsRandomSource(t *testing.T) {
	_, err := Run(sampleSeries(), DefaultOptions(10), nil)
	assert.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{"": MethodMonteCarlo, "MC": MethodMonteCarlo, "pg": MethodProjectedGradient, "sd": MethodProjectedGradient} {
		got, err := ParseMethod(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMethod("newton")
	assert.Error(t, err)
}
