package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMeans_PercentAndNaNAware(t *testing.T) {
	nan := math.NaN()
	instruments := []Instrument{{Ticker: "A"}, {Ticker: "B"}, {Ticker: "C"}}
	returns := [][]float64{{0.1, nan, 0.3}, {nan, nan}, {}}

	got := ComputeMeans(instruments, returns)

	assert.InDelta(t, 20.0, got[0].Mean, 1e-12)
	assert.True(t, math.IsNaN(got[1].Mean))
	assert.True(t, math.IsNaN(got[2].Mean))
	assert.Equal(t, 0.0, instruments[0].Mean, "input must not be mutated")
}

func TestFilterByTargetBand_KeepsPairsAligned(t *testing.T) {
	// consecutive removals are where in-place index juggling goes wrong
	means := []float64{50, 50, 10, 50, math.NaN(), 12, 50, 20, 0.5}
	instruments := make([]Instrument, len(means))
	returns := make([][]float64, len(means))
	for i, m := range means {
		instruments[i] = Instrument{Ticker: string(rune('a' + i)), Mean: m}
		returns[i] = []float64{float64(i)}
	}

	kept, keptReturns := FilterByTargetBand(instruments, returns, 10, 10)

	require.Len(t, kept, 4)
	require.Len(t, keptReturns, 4)
	assert.Equal(t, []string{"c", "f", "h", "i"}, []string{kept[0].Ticker, kept[1].Ticker, kept[2].Ticker, kept[3].Ticker})
	for i, in := range kept {
		assert.Equal(t, float64(in.Ticker[0]-'a'), keptReturns[i][0], "series must stay with its instrument")
	}
}

func TestFilterByTargetBand_BoundsAreInclusive(t *testing.T) {
	instruments := []Instrument{{Ticker: "LO", Mean: 0}, {Ticker: "HI", Mean: 20}, {Ticker: "OUT", Mean: 20.0001}}
	kept, _ := FilterByTargetBand(instruments, [][]float64{{}, {}, {}}, 10, 10)
	require.Len(t, kept, 2)
	assert.Equal(t, "LO", kept[0].Ticker)
	assert.Equal(t, "HI", kept[1].Ticker)
}

func TestComputeVariances(t *testing.T) {
	nan := math.NaN()
	instruments := []Instrument{{Ticker: "A"}, {Ticker: "B"}}
	returns := [][]float64{{0.1, nan, 0.2, 0.3}, {0.5, nan}}

	got := ComputeVariances(instruments, returns)

	// sample variance of 0.1,0.2,0.3 is 0.01
	assert.InDelta(t, 1.0, got[0].Variance, 1e-12)
	assert.Equal(t, 0.0, got[1].Variance, "one observation has no measurable variance")
}
