package finance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vicanso/go-charts/v2"
)

// MakePerformanceChart plots the buy-and-hold value of the optimized weights.
func MakePerformanceChart(a *Analysis) ([]byte, error) {
	if a.Backtest == nil || len(a.Backtest.Values) < 2 {
		return nil, errors.New("not enough data points")
	}
	key := "perf|" + analysisKey(a)
	if img, ok := cacheGet(key); ok {
		return img, nil
	}

	data := a.Backtest
	layout := "Jan '06"
	if a.Request.Period == PeriodYearly {
		layout = "2006"
	}
	et := marketTime()
	xLabels := make([]string, len(data.Timestamps))
	for i, ts := range data.Timestamps {
		xLabels[i] = ts.In(et).Format(layout)
	}

	yMin, yMax := data.Values[0], data.Values[0]
	for _, v := range data.Values {
		yMin = min(yMin, v)
		yMax = max(yMax, v)
	}
	pad := (yMax - yMin) * 0.05
	if pad == 0 {
		pad = yMax * 0.05
	}
	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}
	yMax += pad

	title := fmt.Sprintf("Min-variance portfolio (%s) • %s", strings.Join(a.Result.Tickers(), ", "), a.Request.Span)
	if a.Stats != nil {
		title += fmt.Sprintf("\nReturn: %.2f%% | Sharpe: %.2f | Vol: %.2f%% | MaxDD: %.2f%%",
			a.Stats.TotalReturn, a.Stats.SharpeRatio, a.Stats.Volatility, a.Stats.MaxDrawdown)
	}

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = max(len(xLabels)/3, 3)
	}

	p, err := charts.LineRender(
		[][]float64{data.Values},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
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
