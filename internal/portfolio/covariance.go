package portfolio

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Covariance builds the pairwise sample covariance matrix over jointly observed periods,
// centred on each instrument's own mean and scaled by 100. Pairs with one or no joint
// observation get 0. Returns nil for an empty instrument list.
func Covariance(instruments []Instrument, returns [][]float64) *mat.SymDense {
	n := len(instruments)
	if n == 0 {
		return nil
	}
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, pairCovariance(returns[i], returns[j], instruments[i].Mean/100, instruments[j].Mean/100))
		}
	}
	return cov
}

func pairCovariance(ri, rj []float64, meanI, meanJ float64) float64 {
	length := len(ri)
	if len(rj) < length {
		length = len(rj)
	}
	sum := 0.0
	joint := 0
	for t := 0; t < length; t++ {
		if math.IsNaN(ri[t]) || math.IsNaN(rj[t]) {
			continue
		}
		sum += (ri[t] - meanI) * (rj[t] - meanJ)
		joint++
	}
	if joint <= 1 {
		return 0
	}
	return sum / float64(joint-1) * 100
}
