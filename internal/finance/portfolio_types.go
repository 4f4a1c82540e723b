package finance

import (
	"time"

	"corrMinvar/internal/portfolio"
)

// PortfolioData is the replayed value path of an allocation.
type PortfolioData struct {
	Timestamps []time.Time
	Values     []float64 // Portfolio values starting from InitialValue
	Returns    []float64 // Per-period returns
}

// PortfolioStats represents calculated portfolio statistics
type PortfolioStats struct {
	InitialValue float64
	FinalValue   float64
	TotalReturn  float64 // Total return as percentage
	AnnualReturn float64 // Annualized return
	Volatility   float64 // Annualized volatility
	SharpeRatio  float64 // Risk-free rate assumed to be 0
	MaxDrawdown  float64 // Maximum drawdown as percentage
	NumPeriods   int
}

// AssetData represents price data for a single asset. NaN marks a missing close.
type AssetData struct {
	Symbol     string
	Timestamps []int64
	Prices     []float64
}

// WeightedAsset represents an asset with its weight in the portfolio
type WeightedAsset struct {
	Symbol string
	Weight float64 // Fraction of capital, 0.0 to 1.0
}

// Request is one optimization job: a ticker universe, a target and a window.
type Request struct {
	Symbols []string
	Span    Span
	Period  Period
	Options portfolio.Options
	Seed    uint64 // 0 draws a fresh seed
}

// Analysis is everything produced for one Request.
type Analysis struct {
	Request  Request
	Seed     uint64
	Universe Universe
	Result   *portfolio.Result
	Backtest *PortfolioData
	Stats    *PortfolioStats // nil when the window is too short for statistics
	Dropped  []string        // requested tickers that did not survive filtering
}

// Holdings lists the optimized weights as fractions, in result order.
func (a *Analysis) Holdings() []WeightedAsset {
	out := make([]WeightedAsset, len(a.Result.Instruments))
	for i, in := range a.Result.Instruments {
		out[i] = WeightedAsset{Symbol: in.Ticker, Weight: a.Result.Allocation.Weights[i]}
	}
	return out
}
