package portfolio

import (
	"math"

	"corrMinvar/internal/linalg"
)

// DefaultTolerance is the half-width, in percent, of the band around the target return.
const DefaultTolerance = 10.0

// ComputeMeans returns a copy of instruments with Mean set to the NaN-aware mean return in percent.
func ComputeMeans(instruments []Instrument, returns [][]float64) []Instrument {
	out := make([]Instrument, len(instruments))
	for i, in := range instruments {
		in.Mean = linalg.NanMean(returns[i]) * 100
		out[i] = in
	}
	return out
}

// FilterByTargetBand keeps instruments whose mean is defined and lies within
// [target-tolerance, target+tolerance], together with their return series.
func FilterByTargetBand(instruments []Instrument, returns [][]float64, target, tolerance float64) ([]Instrument, [][]float64) {
	keptInstruments := make([]Instrument, 0, len(instruments))
	keptReturns := make([][]float64, 0, len(returns))
	for i, in := range instruments {
		if math.IsNaN(in.Mean) || in.Mean < target-tolerance || in.Mean > target+tolerance {
			continue
		}
		keptInstruments = append(keptInstruments, in)
		keptReturns = append(keptReturns, returns[i])
	}
	return keptInstruments, keptReturns
}

// ComputeVariances returns a copy of instruments with Variance set to the Bessel-corrected
// sample variance of their returns, scaled by 100.
func ComputeVariances(instruments []Instrument, returns [][]float64) []Instrument {
	out := make([]Instrument, len(instruments))
	for i, in := range instruments {
		in.Variance = linalg.NanVariance(returns[i]) * 100
		out[i] = in
	}
	return out
}
