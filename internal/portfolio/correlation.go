package portfolio

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Correlation divides each covariance by sqrt(var_i·var_j). Zero variances are not
// special-cased: the affected entries come out NaN or ±Inf and mean "undefined".
func Correlation(instruments []Instrument, cov *mat.SymDense) *mat.SymDense {
	n := len(instruments)
	if n == 0 || cov == nil {
		return nil
	}
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			corr.SetSym(i, j, cov.At(i, j)/math.Sqrt(instruments[i].Variance*instruments[j].Variance))
		}
	}
	return corr
}
