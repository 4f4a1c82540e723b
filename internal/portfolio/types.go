// Package portfolio turns aligned closing prices into a minimum-variance allocation
// that hits a target average return. It performs no I/O and never logs.
package portfolio

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptyPortfolio means filtering left no instrument to allocate to.
	ErrEmptyPortfolio = errors.New("no instruments left after filtering")
	// ErrIllConditioned means the projected-gradient step size has a zero denominator.
	ErrIllConditioned = errors.New("covariance is ill-conditioned along the gradient")
)

// Instrument carries the per-ticker statistics. Mean is in percent, Variance in the
// same ×100 scaling as the covariance matrix, Position in percent of the portfolio.
type Instrument struct {
	Ticker   string
	Mean     float64
	Variance float64
	Position float64
}

// PriceSeries is one ticker's closes on the shared period index. NaN marks a missing close.
type PriceSeries struct {
	Ticker string
	Closes []float64
}

// Method selects the solver.
type Method string

const (
	MethodMonteCarlo        Method = "mc"
	MethodProjectedGradient Method = "pg"
)

// ParseMethod accepts the short names plus a few spelled-out aliases.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mc", "montecarlo", "monte-carlo":
		return MethodMonteCarlo, nil
	case "pg", "sd", "gradient", "projected-gradient":
		return MethodProjectedGradient, nil
	default:
		return "", fmt.Errorf("unknown method %q (use mc or pg)", s)
	}
}

// Allocation is a solver's output. Weights are fractions that sum to 1.
type Allocation struct {
	Weights    []float64
	Variance   float64
	Iterations int
	Accepted   int
	Converged  bool
}

// Optimizer refines a feasible starting allocation.
type Optimizer interface {
	Optimize(instruments []Instrument, cov *mat.SymDense, initial []float64) (Allocation, error)
}

// Result is everything one run hands to reporting.
type Result struct {
	Method      Method
	Target      float64
	Instruments []Instrument
	Returns     [][]float64
	Covariance  *mat.SymDense
	Correlation *mat.SymDense
	Initial     []float64
	Allocation  Allocation
}

// Tickers lists the surviving tickers in matrix order.
func (r *Result) Tickers() []string {
	out := make([]string, len(r.Instruments))
	for i, in := range r.Instruments {
		out[i] = in.Ticker
	}
	return out
}

// ExpectedReturn is the weighted mean return of the final allocation, in percent.
func (r *Result) ExpectedReturn() float64 {
	total := 0.0
	for i, in := range r.Instruments {
		total += in.Mean * r.Allocation.Weights[i]
	}
	return total
}
