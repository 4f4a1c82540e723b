package finance

import (
	"fmt"
	"math"
	"sort"
	"time"

	"corrMinvar/internal/portfolio"
)

// Period is the sampling granularity applied after alignment.
type Period string

const (
	PeriodYearly  Period = "1y"
	PeriodMonthly Period = "1mo"
	PeriodDaily   Period = "1d"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodYearly:
		return PeriodYearly, nil
	case PeriodMonthly, PeriodDaily:
		return Period(s), nil
	}
	return "", fmt.Errorf("invalid period %q (use 1y, 1mo or 1d)", s)
}

// PerYear is the number of sampled observations in a calendar year.
func (p Period) PerYear() float64 {
	switch p {
	case PeriodMonthly:
		return 12
	case PeriodDaily:
		return 252
	default:
		return 1
	}
}

// bucket maps a trading day to the period it belongs to.
func (p Period) bucket(day time.Time) int {
	switch p {
	case PeriodMonthly:
		return day.Year()*12 + int(day.Month())
	case PeriodDaily:
		return int(day.Unix() / 86400)
	default:
		return day.Year()
	}
}

// Universe is a close matrix on a shared date index. Closes[i][t] is NaN when
// Symbols[i] has no close on Dates[t].
type Universe struct {
	Dates   []time.Time
	Symbols []string
	Closes  [][]float64
}

// Series hands the closes to the optimizer without copying the rows.
func (u Universe) Series() []portfolio.PriceSeries {
	out := make([]portfolio.PriceSeries, len(u.Symbols))
	for i, s := range u.Symbols {
		out[i] = portfolio.PriceSeries{Ticker: s, Closes: u.Closes[i]}
	}
	return out
}

// Subset keeps only the named symbols, in the order given.
func (u Universe) Subset(symbols []string) Universe {
	idx := make(map[string]int, len(u.Symbols))
	for i, s := range u.Symbols {
		idx[s] = i
	}
	out := Universe{Dates: u.Dates}
	for _, s := range symbols {
		if i, ok := idx[s]; ok {
			out.Symbols = append(out.Symbols, s)
			out.Closes = append(out.Closes, u.Closes[i])
		}
	}
	return out
}

// Align joins assets on the union of their trading days (Eastern calendar) and
// keeps the first trading day of every period. Days an asset did not trade are NaN.
func Align(assets []AssetData, period Period) (Universe, error) {
	if len(assets) == 0 {
		return Universe{}, fmt.Errorf("no assets provided")
	}
	byDay := make([]map[int64]float64, len(assets))
	union := map[int64]time.Time{}
	for i, asset := range assets {
		byDay[i] = make(map[int64]float64, len(asset.Timestamps))
		for j, ts := range asset.Timestamps {
			if j >= len(asset.Prices) {
				break
			}
			d := tradingDay(ts)
			union[d.Unix()] = d
			byDay[i][d.Unix()] = asset.Prices[j]
		}
	}
	if len(union) == 0 {
		return Universe{}, fmt.Errorf("no timestamps found in any asset")
	}

	days := make([]time.Time, 0, len(union))
	for _, d := range union {
		days = append(days, d)
	}
	sort.Slice(days, func(a, b int) bool { return days[a].Before(days[b]) })

	var dates []time.Time
	last := math.MinInt
	for _, d := range days {
		if b := period.bucket(d); b != last {
			dates = append(dates, d)
			last = b
		}
	}

	u := Universe{Dates: dates, Symbols: make([]string, len(assets)), Closes: make([][]float64, len(assets))}
	for i, asset := range assets {
		u.Symbols[i] = asset.Symbol
		row := make([]float64, len(dates))
		for t, d := range dates {
			p, ok := byDay[i][d.Unix()]
			if !ok {
				p = math.NaN()
			}
			row[t] = p
		}
		u.Closes[i] = row
	}
	return u, nil
}

// maskNonPositive replaces closes <= 0 with NaN, keeping timestamp and value arrays aligned.
func maskNonPositive(cl []float64) []float64 {
	out := make([]float64, len(cl))
	for i, v := range cl {
		if v <= 0 || math.IsInf(v, 0) {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// clipWindow keeps points with start <= ts < end.
func clipWindow(ts []int64, cl []float64, start, end int64) ([]int64, []float64) {
	n := min(len(ts), len(cl))
	outTs := make([]int64, 0, n)
	outCl := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if ts[i] < start || ts[i] >= end {
			continue
		}
		outTs = append(outTs, ts[i])
		outCl = append(outCl, cl[i])
	}
	return outTs, outCl
}

// forwardFill fills NaN gaps with the previous close and leading gaps with the
// first close that exists. A row with no close at all is returned unchanged.
func forwardFill(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	first := math.NaN()
	for _, v := range out {
		if !math.IsNaN(v) {
			first = v
			break
		}
	}
	last := first
	for i, v := range out {
		if math.IsNaN(v) {
			out[i] = last
			continue
		}
		last = v
	}
	return out
}
