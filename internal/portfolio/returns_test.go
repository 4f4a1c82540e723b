package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReturns_FiltersExpensiveAndEmpty(t *testing.T) {
	nan := math.NaN()
	series := []PriceSeries{
		{Ticker: "CHEAP", Closes: []float64{10, 11, 12.1}},
		{Ticker: "PRICEY", Closes: []float64{90, 95, 101}},
		{Ticker: "GHOST", Closes: []float64{nan, nan, nan}},
		{Ticker: "GAPPY", Closes: []float64{20, nan, 22, nan}},
		{Ticker: "EDGE", Closes: []float64{50, 100}},
	}

	instruments, returns := BuildReturns(series, 100)

	require.Len(t, instruments, 3)
	require.Len(t, returns, 3)
	assert.Equal(t, "CHEAP", instruments[0].Ticker)
	assert.Equal(t, "GAPPY", instruments[1].Ticker)
	assert.Equal(t, "EDGE", instruments[2].Ticker, "a close equal to the threshold is kept")

	assert.InDeltaSlice(t, []float64{0.1, 0.1}, returns[0], 1e-12)

	gappy := returns[1]
	require.Len(t, gappy, 3)
	assert.True(t, math.IsNaN(gappy[0]))
	assert.True(t, math.IsNaN(gappy[1]))
	assert.True(t, math.IsNaN(gappy[2]))

	assert.InDeltaSlice(t, []float64{1.0}, returns[2], 1e-12)
}

func TestBuildReturns_MissingLatestCloseIsNotExpensive(t *testing.T) {
	instruments, returns := BuildReturns([]PriceSeries{
		{Ticker: "X", Closes: []float64{500, 505, math.NaN()}},
	}, 100)
	require.Len(t, instruments, 1)
	assert.InDelta(t, 0.01, returns[0][0], 1e-12)
	assert.True(t, math.IsNaN(returns[0][1]))
}

func TestBuildReturns_ZeroPreviousCloseIsMissing(t *testing.T) {
	_, returns := BuildReturns([]PriceSeries{{Ticker: "Z", Closes: []float64{0, 5, 10}}}, 100)
	require.Len(t, returns, 1)
	assert.True(t, math.IsNaN(returns[0][0]))
	assert.InDelta(t, 1.0, returns[0][1], 1e-12)
}

func TestBuildReturns_LengthIsPeriodsMinusOne(t *testing.T) {
	_, returns := BuildReturns([]PriceSeries{
		{Ticker: "ONE", Closes: []float64{10}},
		{Ticker: "FIVE", Closes: []float64{1, 2, 3, 4, 5}},
	}, 100)
	require.Len(t, returns, 2)
	assert.Empty(t, returns[0])
	assert.Len(t, returns[1], 4)
}
