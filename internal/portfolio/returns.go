package portfolio

import "math"

// BuildReturns drops instruments whose latest close is above maxPrice or whose closes are
// all missing, and converts the rest to simple period returns. The two outputs are parallel.
func BuildReturns(series []PriceSeries, maxPrice float64) ([]Instrument, [][]float64) {
	instruments := make([]Instrument, 0, len(series))
	returns := make([][]float64, 0, len(series))
	for _, s := range series {
		if len(s.Closes) == 0 || allMissing(s.Closes) {
			continue
		}
		// a missing latest close never exceeds the threshold
		if last := s.Closes[len(s.Closes)-1]; last > maxPrice {
			continue
		}
		instruments = append(instruments, Instrument{Ticker: s.Ticker})
		returns = append(returns, periodReturns(s.Closes))
	}
	return instruments, returns
}

func allMissing(xs []float64) bool {
	for _, x := range xs {
		if !math.IsNaN(x) {
			return false
		}
	}
	return true
}

func periodReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return []float64{}
	}
	out := make([]float64, len(closes)-1)
	for t := 1; t < len(closes); t++ {
		prev, curr := closes[t-1], closes[t]
		if prev == 0 {
			out[t-1] = math.NaN()
			continue
		}
		out[t-1] = (curr - prev) / prev
	}
	return out
}
