package finance

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vicanso/go-charts/v2"

	"corrMinvar/internal/portfolio"
)

// minChartPosition hides dust positions (percent) from the allocation chart.
const minChartPosition = 1.0

// chartPositions returns positions of at least 1%, largest first.
func chartPositions(instruments []portfolio.Instrument) ([]string, []float64) {
	kept := make([]portfolio.Instrument, 0, len(instruments))
	for _, in := range instruments {
		if in.Position >= minChartPosition {
			kept = append(kept, in)
		}
	}
	sort.SliceStable(kept, func(a, b int) bool { return kept[a].Position > kept[b].Position })

	labels := make([]string, len(kept))
	values := make([]float64, len(kept))
	for i, in := range kept {
		labels[i] = in.Ticker
		values[i] = math.Round(in.Position*100) / 100
	}
	return labels, values
}

// MakeAllocationChart renders the optimized positions as horizontal bars.
func MakeAllocationChart(a *Analysis) ([]byte, error) {
	key := "alloc|" + analysisKey(a)
	if img, ok := cacheGet(key); ok {
		return img, nil
	}

	labels, values := chartPositions(a.Result.Instruments)
	if len(labels) == 0 {
		return nil, fmt.Errorf("no position above %.0f%%", minChartPosition)
	}

	title := fmt.Sprintf("Min-variance portfolio: target %.1f%% (%s, %s)",
		a.Result.Target, strings.ToUpper(string(a.Result.Method)), a.Request.Span)
	subtitle := fmt.Sprintf("Expected return: %.2f%% | Variance: %.4f", a.Result.ExpectedReturn(), a.Result.Allocation.Variance)

	height := 120 + 36*len(labels)
	p, err := charts.HorizontalBarRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title+"\n"+subtitle),
		charts.YAxisDataOptionFunc(labels),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(max(height, 300)),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	cacheSet(key, buf)
	return buf, nil
}

// correlationTable formats the correlation matrix with a ticker header row and index column.
func correlationTable(tickers []string, corr interface{ At(i, j int) float64 }) ([]string, [][]string) {
	header := append([]string{""}, tickers...)
	rows := make([][]string, len(tickers))
	for i, t := range tickers {
		row := make([]string, len(tickers)+1)
		row[0] = t
		for j := range tickers {
			row[j+1] = formatFloat(corr.At(i, j), 2)
		}
		rows[i] = row
	}
	return header, rows
}

// MakeCorrelationChart renders the correlation matrix as a table image.
func MakeCorrelationChart(a *Analysis) ([]byte, error) {
	key := "corr|" + analysisKey(a)
	if img, ok := cacheGet(key); ok {
		return img, nil
	}
	if a.Result.Correlation == nil {
		return nil, fmt.Errorf("no correlation matrix")
	}
	header, rows := correlationTable(a.Result.Tickers(), a.Result.Correlation)
	p, err := charts.TableRender(header, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to render table: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	cacheSet(key, buf)
	return buf, nil
}

// analysisKey identifies the rendered output: the sampled window plus every
// position and the backtest it produced.
func analysisKey(a *Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%.4f|%.8g", a.Request.Span, a.Request.Period, a.Result.Method, a.Result.Target, a.Result.Allocation.Variance)
	for _, in := range a.Result.Instruments {
		fmt.Fprintf(&b, "|%s=%.6f", in.Ticker, in.Position)
	}
	if bt := a.Backtest; bt != nil && len(bt.Values) > 0 {
		fmt.Fprintf(&b, "|bt%d:%.6f", len(bt.Values), bt.Values[len(bt.Values)-1])
	}
	return b.String()
}
