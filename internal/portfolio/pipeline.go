package portfolio

import (
	"fmt"
	"math/rand/v2"
)

// Options bundles the tunables of one run. DefaultOptions fills in the usual values.
type Options struct {
	Target            float64
	Tolerance         float64
	MaxPrice          float64
	Method            Method
	Trials            int
	StepScale         float64
	GradientTolerance float64
	MaxIterations     int
}

// DefaultOptions returns the standard tuning for the given target return (percent).
func DefaultOptions(target float64) Options {
	return Options{
		Target:            target,
		Tolerance:         DefaultTolerance,
		MaxPrice:          100,
		Method:            MethodMonteCarlo,
		Trials:            DefaultTrials,
		StepScale:         DefaultStepScale,
		GradientTolerance: DefaultGradientTolerance,
		MaxIterations:     DefaultMaxIterations,
	}
}

// Solver builds the optimizer selected by opts. rng is only used by the Monte Carlo search.
func (o Options) Solver(rng *rand.Rand) (Optimizer, error) {
	switch o.Method {
	case MethodMonteCarlo:
		if rng == nil {
			return nil, fmt.Errorf("monte carlo search needs a random source")
		}
		return &MonteCarlo{Trials: o.Trials, StepScale: o.StepScale, Rand: rng}, nil
	case MethodProjectedGradient:
		return &ProjectedGradient{Tolerance: o.GradientTolerance, MaxIterations: o.MaxIterations}, nil
	default:
		return nil, fmt.Errorf("unknown method %q", o.Method)
	}
}

// Run executes the whole pipeline: returns, statistics, band filter, covariance,
// initial allocation, solver, correlation. Every stage works on its own copy.
func Run(series []PriceSeries, opts Options, rng *rand.Rand) (*Result, error) {
	solver, err := opts.Solver(rng)
	if err != nil {
		return nil, err
	}

	instruments, returns := BuildReturns(series, opts.MaxPrice)
	instruments = ComputeMeans(instruments, returns)
	instruments, returns = FilterByTargetBand(instruments, returns, opts.Target, opts.Tolerance)
	if len(instruments) == 0 {
		return nil, fmt.Errorf("target %.2f%% ± %.2f with max price %.2f: %w", opts.Target, opts.Tolerance, opts.MaxPrice, ErrEmptyPortfolio)
	}
	instruments = ComputeVariances(instruments, returns)

	cov := Covariance(instruments, returns)
	initial := InitialAllocation(instruments, opts.Target)
	alloc, err := solver.Optimize(instruments, cov, initial)
	if err != nil {
		return nil, err
	}

	final := make([]Instrument, len(instruments))
	for i, in := range instruments {
		in.Position = alloc.Weights[i] * 100
		final[i] = in
	}
	return &Result{
		Method:      opts.Method,
		Target:      opts.Target,
		Instruments: final,
		Returns:     returns,
		Covariance:  cov,
		Correlation: Correlation(final, cov),
		Initial:     initial,
		Allocation:  alloc,
	}, nil
}
