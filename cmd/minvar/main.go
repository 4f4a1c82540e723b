package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"corrMinvar/internal/config"
	"corrMinvar/internal/finance"
	"corrMinvar/internal/logging"
	"corrMinvar/internal/storage"
)

var (
	configPath string
	logLevel   string
	cfg        config.Config
)

// rootCmd is the base command for the minvar CLI
var rootCmd = &cobra.Command{
	Use:   "minvar",
	Short: "Minimum-variance portfolios from historical returns",
	Long: `minvar downloads yearly closes from Yahoo Finance, keeps instruments whose
average return is near a target, and searches for the long-only weights with the
lowest portfolio variance.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if err := logging.Setup(c.Log.Level, c.Log.Pretty, os.Stderr); err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the sqlite file behind the price cache and run history.
func openStore(path string) (*storage.Store, func(), error) {
	// Ensure parent directory for the DB exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create db dir: %w", err)
	}
	db, err := storage.OpenSQLite("file:" + path + "?_fk=1")
	if err != nil {
		return nil, nil, err
	}
	if err := storage.InitSchema(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Debug().Str("path", path).Msg("db: opened sqlite")
	return storage.NewStore(db), func() { db.Close() }, nil
}

func newAnalyzer(c config.Config, cache finance.PriceCache) *finance.Analyzer {
	client := finance.NewClient(finance.ClientOptions{RPS: c.Data.YahooRPS, Burst: c.Data.YahooBurst})
	return &finance.Analyzer{
		Fetcher:     client,
		Cache:       cache,
		Concurrency: c.Data.Concurrency,
		CacheTTL:    c.Data.CacheTTL,
	}
}
