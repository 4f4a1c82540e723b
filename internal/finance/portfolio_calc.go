package finance

import (
	"fmt"
	"math"
	"time"
)

// calculateWeightedPortfolio buys the holdings at the first date and holds them.
// Prices must already be gap-free (see forwardFill).
func calculateWeightedPortfolio(timestamps []time.Time, assetPrices [][]float64, holdings []WeightedAsset, initialValue float64) (*PortfolioData, error) {
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("no timestamps provided")
	}

	numAssets := len(assetPrices)
	numPeriods := len(timestamps)

	if len(holdings) != numAssets {
		return nil, fmt.Errorf("holdings (%d) don't match price data (%d)", len(holdings), numAssets)
	}
	for i, prices := range assetPrices {
		if len(prices) != numPeriods {
			return nil, fmt.Errorf("asset %d has %d data points, expected %d", i, len(prices), numPeriods)
		}
	}
	if numPeriods < 2 {
		return nil, fmt.Errorf("need at least 2 data points for portfolio calculation")
	}

	values := make([]float64, numPeriods)
	returns := make([]float64, numPeriods-1)
	values[0] = initialValue

	netWeight := 0.0
	for _, h := range holdings {
		netWeight += h.Weight
	}
	cashValue := initialValue * (1.0 - netWeight)

	shares := make([]float64, numAssets)
	for i, h := range holdings {
		p0 := assetPrices[i][0]
		if p0 <= 0 || math.IsNaN(p0) || math.IsInf(p0, 0) {
			if h.Weight == 0 {
				continue
			}
			return nil, fmt.Errorf("invalid initial price for %s: %f", h.Symbol, p0)
		}
		shares[i] = initialValue * h.Weight / p0
	}

	for t := 1; t < numPeriods; t++ {
		value := cashValue
		for i := range holdings {
			if shares[i] == 0 {
				continue
			}
			price := assetPrices[i][t]
			if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
				return nil, fmt.Errorf("invalid price for %s at %s: %f", holdings[i].Symbol, timestamps[t].Format("2006-01-02"), price)
			}
			value += shares[i] * price
		}
		values[t] = value
		if values[t-1] > 0 {
			returns[t-1] = (values[t] - values[t-1]) / values[t-1]
		}
	}

	return &PortfolioData{
		Timestamps: timestamps,
		Values:     values,
		Returns:    returns,
	}, nil
}

// calculatePortfolioStats computes return, volatility, Sharpe and drawdown.
// periodsPerYear annualizes: 1 for yearly samples, 12 monthly, 252 daily.
func calculatePortfolioStats(data *PortfolioData, periodsPerYear float64) (*PortfolioStats, error) {
	if data == nil || len(data.Values) < 2 {
		return nil, fmt.Errorf("insufficient portfolio data")
	}
	if len(data.Returns) < 2 {
		return nil, fmt.Errorf("need at least 2 return observations for statistics")
	}

	n := len(data.Values)
	initialValue := data.Values[0]
	finalValue := data.Values[n-1]
	totalReturn := (finalValue - initialValue) / initialValue

	mean := 0.0
	for _, r := range data.Returns {
		mean += r
	}
	mean /= float64(len(data.Returns))

	// sample variance, N-1
	variance := 0.0
	for _, r := range data.Returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(data.Returns) - 1)
	periodVol := math.Sqrt(variance)

	years := float64(len(data.Returns)) / periodsPerYear
	var annualReturn float64
	if years > 0 && finalValue > 0 && initialValue > 0 {
		annualReturn = math.Pow(finalValue/initialValue, 1.0/years) - 1.0
	}
	annualVol := periodVol * math.Sqrt(periodsPerYear)

	var sharpe float64
	if annualVol > 0 {
		sharpe = annualReturn / annualVol
	}

	stats := &PortfolioStats{
		InitialValue: initialValue,
		FinalValue:   finalValue,
		TotalReturn:  totalReturn * 100,
		AnnualReturn: annualReturn * 100,
		Volatility:   annualVol * 100,
		SharpeRatio:  sharpe,
		MaxDrawdown:  calculateMaxDrawdown(data.Values) * 100,
		NumPeriods:   n,
	}
	for name, v := range map[string]float64{
		"total return":  stats.TotalReturn,
		"annual return": stats.AnnualReturn,
		"volatility":    stats.Volatility,
		"Sharpe ratio":  stats.SharpeRatio,
		"max drawdown":  stats.MaxDrawdown,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid %s: %f", name, v)
		}
	}
	return stats, nil
}

// calculateMaxDrawdown is the largest peak-to-trough decline as a fraction.
func calculateMaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}

	peak := values[0]
	if peak <= 0 {
		for i := 1; i < len(values); i++ {
			if values[i] > 0 {
				peak = values[i]
				break
			}
		}
		if peak <= 0 {
			return 0.0
		}
	}

	maxDrawdown := 0.0
	for _, value := range values {
		if value > peak {
			peak = value
		}
		if peak > 0 && value >= 0 {
			if dd := (peak - value) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return maxDrawdown
}
