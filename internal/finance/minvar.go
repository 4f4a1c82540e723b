package finance

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"corrMinvar/internal/metrics"
	"corrMinvar/internal/portfolio"
	"corrMinvar/internal/storage"
)

// Analyzer runs a Request end to end: download, align, optimize, backtest.
type Analyzer struct {
	Fetcher     Fetcher
	Cache       PriceCache // optional
	Concurrency int
	CacheTTL    time.Duration // 0 never expires
}

// NewRand builds the optimizer's random source. A zero seed draws one from the clock.
func NewRand(seed uint64) (*rand.Rand, uint64) {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), seed
}

func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	if len(req.Symbols) == 0 {
		return nil, errors.New("no tickers given")
	}
	if err := req.Span.Validate(); err != nil {
		return nil, err
	}
	if req.Period == "" {
		req.Period = PeriodYearly
	}

	assets, err := FetchUniverse(ctx, a.Fetcher, a.Cache, req.Symbols, req.Span, a.Concurrency, a.CacheTTL)
	if err != nil {
		return nil, err
	}
	universe, err := Align(assets, req.Period)
	if err != nil {
		return nil, fmt.Errorf("failed to align prices: %w", err)
	}
	log.Info().Int("tickers", len(universe.Symbols)).Int("periods", len(universe.Dates)).Str("span", req.Span.String()).Msg("minvar: prices aligned")

	rng, seed := NewRand(req.Seed)
	method := string(req.Options.Method)
	started := time.Now()
	result, err := portfolio.Run(universe.Series(), req.Options, rng)
	metrics.OptimizerDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.OptimizerRuns.WithLabelValues(method, "error").Inc()
		return nil, err
	}
	metrics.OptimizerRuns.WithLabelValues(method, "ok").Inc()
	metrics.PortfolioSize.Observe(float64(len(result.Instruments)))

	an := &Analysis{
		Request:  req,
		Seed:     seed,
		Universe: universe,
		Result:   result,
		Dropped:  dropped(universe.Symbols, result.Tickers()),
	}
	log.Info().
		Str("method", method).
		Int("instruments", len(result.Instruments)).
		Float64("variance", result.Allocation.Variance).
		Float64("expected_return", result.ExpectedReturn()).
		Dur("took", time.Since(started)).
		Msg("minvar: optimized")

	an.Backtest, an.Stats = backtest(an)
	return an, nil
}

// backtest replays the weights; a too-short window only costs the statistics.
func backtest(an *Analysis) (*PortfolioData, *PortfolioStats) {
	sub := an.Universe.Subset(an.Result.Tickers())
	prices := make([][]float64, len(sub.Closes))
	for i, row := range sub.Closes {
		prices[i] = forwardFill(row)
	}
	data, err := calculateWeightedPortfolio(sub.Dates, prices, an.Holdings(), 100)
	if err != nil {
		log.Debug().Err(err).Msg("minvar: backtest skipped")
		return nil, nil
	}
	stats, err := calculatePortfolioStats(data, an.Request.Period.PerYear())
	if err != nil {
		log.Debug().Err(err).Msg("minvar: backtest stats skipped")
		return data, nil
	}
	return data, stats
}

func dropped(all, kept []string) []string {
	in := make(map[string]bool, len(kept))
	for _, t := range kept {
		in[t] = true
	}
	var out []string
	for _, t := range all {
		if !in[t] {
			out = append(out, t)
		}
	}
	return out
}

// Record converts the analysis into a history row. chatID 0 marks the CLI.
func (a *Analysis) Record(chatID int64) storage.RunRecord {
	r := a.Result
	rec := storage.RunRecord{
		ChatID:         chatID,
		Method:         string(r.Method),
		Target:         r.Target,
		Span:           a.Request.Span.String(),
		Seed:           a.Seed,
		Variance:       r.Allocation.Variance,
		ExpectedReturn: r.ExpectedReturn(),
	}
	for _, in := range r.Instruments {
		rec.Positions = append(rec.Positions, storage.PositionRecord{
			Ticker: in.Ticker, Mean: in.Mean, Variance: in.Variance, Position: in.Position,
		})
	}
	return rec
}
