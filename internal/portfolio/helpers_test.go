package portfolio

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed*2654435761+1))
}

// closesFromReturns compounds rets onto start, giving len(rets)+1 closes.
func closesFromReturns(start float64, rets ...float64) []float64 {
	out := []float64{start}
	for _, r := range rets {
		out = append(out, out[len(out)-1]*(1+r))
	}
	return out
}

// randomPSD returns AᵀA + εI for a random A, a well-conditioned covariance.
func randomPSD(rng *rand.Rand, n int) *mat.SymDense {
	a := mat.NewDense(n+2, n, nil)
	for i := 0; i < n+2; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, rng.NormFloat64())
		}
	}
	var ata mat.SymDense
	ata.SymOuterK(1, a.T())
	for i := 0; i < n; i++ {
		ata.SetSym(i, i, ata.At(i, i)+0.1)
	}
	return &ata
}

func instrumentsFor(means []float64, cov mat.Symmetric) []Instrument {
	out := make([]Instrument, len(means))
	for i, m := range means {
		out[i] = Instrument{Ticker: string(rune('A' + i)), Mean: m}
		if cov != nil {
			out[i].Variance = cov.At(i, i)
		}
	}
	return out
}
