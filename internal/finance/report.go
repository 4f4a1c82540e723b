package finance

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"corrMinvar/internal/portfolio"
)

const (
	PortfolioReportFile   = "Portfolio.txt"
	CorrelationReportFile = "Correlation.txt"
)

// formatFloat renders v with a fixed number of places. Non-finite values are
// written as NaN, +Inf or -Inf so a broken correlation stays visible.
func formatFloat(v float64, places int32) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// WritePortfolioReport writes one CSV row per instrument: ticker, mean, variance, position.
func WritePortfolioReport(w io.Writer, r *portfolio.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ticker", "mean", "variance", "position"}); err != nil {
		return err
	}
	for _, in := range r.Instruments {
		row := []string{in.Ticker, formatFloat(in.Mean, 6), formatFloat(in.Variance, 6), formatFloat(in.Position, 6)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCorrelationReport writes the correlation matrix with tickers as header and index.
func WriteCorrelationReport(w io.Writer, r *portfolio.Result) error {
	tickers := r.Tickers()
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{""}, tickers...)); err != nil {
		return err
	}
	for i, t := range tickers {
		row := make([]string, len(tickers)+1)
		row[0] = t
		for j := range tickers {
			row[j+1] = formatFloat(r.Correlation.At(i, j), 6)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReports creates dir if needed and writes both report files into it.
func WriteReports(dir string, r *portfolio.Result) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	var written []string
	for name, write := range map[string]func(io.Writer, *portfolio.Result) error{
		PortfolioReportFile:   WritePortfolioReport,
		CorrelationReportFile: WriteCorrelationReport,
	} {
		path := filepath.Join(dir, name)
		if err := writeFile(path, r, write); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	sort.Strings(written)
	return written, nil
}

func writeFile(path string, r *portfolio.Result, write func(io.Writer, *portfolio.Result) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

type SummaryOptions struct {
	PrintMean     bool
	PrintVariance bool
}

// FormatSummary is the plain-text result shared by the CLI and the bot.
func FormatSummary(a *Analysis, opts SummaryOptions) string {
	r := a.Result
	var b strings.Builder
	fmt.Fprintf(&b, "Min-variance portfolio, target %s%% (%s, %s)\n", formatFloat(r.Target, 2), r.Method, a.Request.Span)

	if opts.PrintMean {
		b.WriteString("---------- Average return (%) ----------\n")
		for _, in := range r.Instruments {
			fmt.Fprintf(&b, "%-8s %s\n", in.Ticker, formatFloat(in.Mean, 4))
		}
	}
	if opts.PrintVariance {
		b.WriteString("---------- Variance ----------\n")
		for _, in := range r.Instruments {
			fmt.Fprintf(&b, "%-8s %s\n", in.Ticker, formatFloat(in.Variance, 4))
		}
	}

	b.WriteString("---------- Positions ----------\n")
	order := make([]int, len(r.Instruments))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool { return r.Instruments[order[x]].Position > r.Instruments[order[y]].Position })
	for _, i := range order {
		in := r.Instruments[i]
		if math.Abs(in.Position) < 0.005 {
			continue
		}
		fmt.Fprintf(&b, "%-8s %s%%  (mean %s%%)\n", in.Ticker, formatFloat(in.Position, 2), formatFloat(in.Mean, 2))
	}

	fmt.Fprintf(&b, "Expected return: %s%%\n", formatFloat(r.ExpectedReturn(), 2))
	fmt.Fprintf(&b, "Variance of portfolio: %s\n", formatFloat(r.Allocation.Variance, 6))
	if r.Method == portfolio.MethodMonteCarlo {
		fmt.Fprintf(&b, "Accepted moves: %d of %d (seed %d)\n", r.Allocation.Accepted, r.Allocation.Iterations, a.Seed)
	} else {
		fmt.Fprintf(&b, "Iterations: %d (converged: %t)\n", r.Allocation.Iterations, r.Allocation.Converged)
	}
	if a.Stats != nil {
		fmt.Fprintf(&b, "Backtest: return %s%% | vol %s%% | Sharpe %s | MaxDD %s%%\n",
			formatFloat(a.Stats.TotalReturn, 2), formatFloat(a.Stats.Volatility, 2),
			formatFloat(a.Stats.SharpeRatio, 2), formatFloat(a.Stats.MaxDrawdown, 2))
	}
	if len(a.Dropped) > 0 {
		fmt.Fprintf(&b, "Dropped: %s\n", strings.Join(a.Dropped, ", "))
	}
	return b.String()
}
