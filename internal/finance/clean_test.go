package finance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alignFixture() []AssetData {
	return []AssetData{
		{Symbol: "AAA", Timestamps: []int64{day(2010, 1, 4), day(2010, 6, 1), day(2011, 1, 3), day(2011, 2, 1)}, Prices: []float64{10, 11, 12, 13}},
		{Symbol: "BBB", Timestamps: []int64{day(2010, 1, 5), day(2011, 1, 3)}, Prices: []float64{20, 22}},
	}
}

func dates(u Universe) []string {
	out := make([]string, len(u.Dates))
	for i, d := range u.Dates {
		out[i] = d.Format("2006-01-02")
	}
	return out
}

func TestAlign_YearlyKeepsFirstTradingDay(t *testing.T) {
	u, err := Align(alignFixture(), PeriodYearly)

	require.NoError(t, err)
	assert.Equal(t, []string{"2010-01-04", "2011-01-03"}, dates(u))
	assert.Equal(t, []string{"AAA", "BBB"}, u.Symbols)
	assert.Equal(t, []float64{10, 12}, u.Closes[0])
	assert.True(t, math.IsNaN(u.Closes[1][0]), "BBB did not trade on the first day of 2010")
	assert.Equal(t, 22.0, u.Closes[1][1])
}

func TestAlign_Monthly(t *testing.T) {
	u, err := Align(alignFixture(), PeriodMonthly)

	require.NoError(t, err)
	assert.Equal(t, []string{"2010-01-04", "2010-06-01", "2011-01-03", "2011-02-01"}, dates(u))
}

func TestAlign_DailyIsTheUnion(t *testing.T) {
	u, err := Align(alignFixture(), PeriodDaily)

	require.NoError(t, err)
	assert.Len(t, u.Dates, 5)
	assert.Equal(t, 20.0, u.Closes[1][1])
}

func TestAlign_Errors(t *testing.T) {
	_, err := Align(nil, PeriodYearly)
	assert.Error(t, err)

	_, err = Align([]AssetData{{Symbol: "X"}}, PeriodYearly)
	assert.Error(t, err)
}

func TestAlign_EmptyAssetBecomesNaNRow(t *testing.T) {
	assets := append(alignFixture(), AssetData{Symbol: "DEAD"})

	u, err := Align(assets, PeriodYearly)

	require.NoError(t, err)
	require.Len(t, u.Closes, 3)
	for _, v := range u.Closes[2] {
		assert.True(t, math.IsNaN(v))
	}
}

func TestUniverse_SeriesAndSubset(t *testing.T) {
	u, err := Align(alignFixture(), PeriodYearly)
	require.NoError(t, err)

	series := u.Series()
	require.Len(t, series, 2)
	assert.Equal(t, "BBB", series[1].Ticker)

	sub := u.Subset([]string{"BBB", "MISSING"})
	assert.Equal(t, []string{"BBB"}, sub.Symbols)
	assert.Equal(t, u.Dates, sub.Dates)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodYearly, p)

	p, err = ParsePeriod("1mo")
	require.NoError(t, err)
	assert.Equal(t, 12.0, p.PerYear())

	_, err = ParsePeriod("1w")
	assert.Error(t, err)
}

func TestForwardFill(t *testing.T) {
	nan := math.NaN()

	got := forwardFill([]float64{nan, 5, nan, 7, nan})

	assert.Equal(t, []float64{5, 5, 5, 7, 7}, got)
}

func TestClipWindowAndMask(t *testing.T) {
	ts, cl := clipWindow([]int64{1, 2, 3, 4}, []float64{1, 2, 3}, 2, 4)
	assert.Equal(t, []int64{2, 3}, ts)
	assert.Equal(t, []float64{2, 3}, cl)

	masked := maskNonPositive([]float64{1, 0, -2, math.Inf(1)})
	assert.Equal(t, 1.0, masked[0])
	for _, v := range masked[1:] {
		assert.True(t, math.IsNaN(v))
	}
}

func TestSpanWindow(t *testing.T) {
	start, end := Span{StartYear: 2010, EndYear: 2020}.Window()

	assert.Equal(t, "2010-01-02", start.Format("2006-01-02"))
	assert.Equal(t, "2020-01-01", end.Format("2006-01-02"))
	assert.True(t, start.Before(end))
}
