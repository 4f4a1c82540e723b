package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"corrMinvar/internal/config"
	"corrMinvar/internal/finance"
	"corrMinvar/internal/portfolio"
	"corrMinvar/internal/storage"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <tickers.csv> [target]",
	Short: "Compute a minimum-variance portfolio for a ticker list",
	Long: `Read tickers from a CSV file (one-line header, ticker in the first column),
download closes for the span, and write Portfolio.txt and Correlation.txt.

Examples:
  minvar optimize sp500.csv 10
  minvar optimize sp500.csv 12 --span 2012,2022 --max-price 250
  minvar optimize sp500.csv 10 --method pg --print-mean --chart`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runOptimize,
}

var (
	optTarget        float64
	optSpan          []int
	optMaxPrice      float64
	optTolerance     float64
	optMethod        string
	optPeriod        string
	optSeed          uint64
	optTrials        int
	optOutDir        string
	optPrintMean     bool
	optPrintVariance bool
	optChart         bool
	optNoCache       bool
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	f := optimizeCmd.Flags()
	f.Float64Var(&optTarget, "target", 10, "target average return in percent (overridden by the positional argument)")
	f.IntSliceVar(&optSpan, "span", []int{2010, 2020}, "first and last year, e.g. --span 2010,2020")
	f.Float64Var(&optMaxPrice, "max-price", 100, "drop instruments whose last close is above this")
	f.Float64Var(&optTolerance, "tolerance", portfolio.DefaultTolerance, "half-width of the target return band")
	f.StringVar(&optMethod, "method", "mc", "solver: mc (Monte Carlo) or pg (projected gradient)")
	f.StringVar(&optPeriod, "period", "1y", "sampling period: 1y, 1mo or 1d")
	f.Uint64Var(&optSeed, "seed", 0, "random seed (0 picks one)")
	f.IntVar(&optTrials, "trials", portfolio.DefaultTrials, "Monte Carlo trials")
	f.StringVar(&optOutDir, "out-dir", ".", "directory for Portfolio.txt, Correlation.txt and charts")
	f.BoolVar(&optPrintMean, "print-mean", false, "print the average return of each instrument")
	f.BoolVar(&optPrintVariance, "print-variance", false, "print the variance of each instrument")
	f.BoolVar(&optChart, "chart", false, "also write allocation, correlation and performance PNGs")
	f.BoolVar(&optNoCache, "no-cache", false, "skip the sqlite price cache")
}

// applyOptimizeFlags lets explicitly set flags win over the config file.
func applyOptimizeFlags(cmd *cobra.Command, c config.Config) (config.Config, error) {
	f := cmd.Flags()
	if f.Changed("span") {
		if len(optSpan) != 2 {
			return c, fmt.Errorf("--span needs two years, got %v", optSpan)
		}
		c.Data.StartYear, c.Data.EndYear = optSpan[0], optSpan[1]
	}
	if f.Changed("max-price") {
		c.Data.MaxPrice = optMaxPrice
	}
	if f.Changed("tolerance") {
		c.Optimizer.Tolerance = optTolerance
	}
	if f.Changed("method") {
		c.Optimizer.Method = optMethod
	}
	if f.Changed("period") {
		c.Data.Period = optPeriod
	}
	if f.Changed("seed") {
		c.Optimizer.Seed = optSeed
	}
	if f.Changed("trials") {
		c.Optimizer.Trials = optTrials
	}
	return c, c.Validate()
}

func runOptimize(cmd *cobra.Command, args []string) error {
	c, err := applyOptimizeFlags(cmd, cfg)
	if err != nil {
		return fmt.Errorf("invalid optimize parameters: %w", err)
	}
	target := optTarget
	if len(args) == 2 {
		if target, err = strconv.ParseFloat(args[1], 64); err != nil {
			return fmt.Errorf("invalid target %q: %w", args[1], err)
		}
	}

	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	symbols, err := finance.ReadTickers(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	var cache finance.PriceCache
	var store *storage.Store
	if !optNoCache {
		s, closeDB, err := openStore(c.Server.DBPath)
		if err != nil {
			return err
		}
		defer closeDB()
		store, cache = s, s
	}

	period, _ := finance.ParsePeriod(c.Data.Period)
	req := finance.Request{
		Symbols: symbols,
		Span:    finance.Span{StartYear: c.Data.StartYear, EndYear: c.Data.EndYear},
		Period:  period,
		Options: c.PortfolioOptions(target),
		Seed:    c.Optimizer.Seed,
	}
	log.Info().Int("tickers", len(symbols)).Float64("target", target).Str("method", string(req.Options.Method)).Msg("optimize: starting")

	an, err := newAnalyzer(c, cache).Analyze(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, finance.FormatSummary(an, finance.SummaryOptions{PrintMean: optPrintMean, PrintVariance: optPrintVariance}))

	written, err := finance.WriteReports(optOutDir, an.Result)
	if err != nil {
		return err
	}
	if optChart {
		written = append(written, writeCharts(an, optOutDir)...)
	}
	for _, p := range written {
		fmt.Fprintf(out, "wrote %s\n", p)
	}

	if store != nil {
		if _, err := store.SaveRun(an.Record(0)); err != nil {
			log.Warn().Err(err).Msg("optimize: failed to save run")
		}
	}
	return nil
}

// writeCharts renders what it can; a chart that fails is logged and skipped.
func writeCharts(an *finance.Analysis, dir string) []string {
	var written []string
	for _, ch := range []struct {
		name   string
		render func(*finance.Analysis) ([]byte, error)
	}{
		{"allocation.png", finance.MakeAllocationChart},
		{"correlation.png", finance.MakeCorrelationChart},
		{"performance.png", finance.MakePerformanceChart},
	} {
		img, err := ch.render(an)
		if err != nil {
			log.Warn().Err(err).Str("chart", ch.name).Msg("optimize: chart skipped")
			continue
		}
		path := filepath.Join(dir, ch.name)
		if err := os.WriteFile(path, img, 0o644); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("optimize: failed to write chart")
			continue
		}
		written = append(written, path)
	}
	return written
}
