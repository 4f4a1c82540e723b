package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"corrMinvar/internal/portfolio"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	TelegramToken    string `yaml:"telegram_token"`
	WebhookPublicURL string `yaml:"webhook_public_url"`
	OpenAIKey        string `yaml:"openai_key"`
	Port             string `yaml:"port"`
	DBPath           string `yaml:"db_path"`
}

// DataConfig controls the download window and how hard Yahoo gets hit.
type DataConfig struct {
	MaxPrice    float64       `yaml:"max_price"`
	StartYear   int           `yaml:"start_year"`
	EndYear     int           `yaml:"end_year"`
	Period      string        `yaml:"period"` // 1y, 1mo or 1d
	YahooRPS    float64       `yaml:"yahoo_rps"`
	YahooBurst  int           `yaml:"yahoo_burst"`
	Concurrency int           `yaml:"concurrency"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

type OptimizerConfig struct {
	Method            string  `yaml:"method"`
	Tolerance         float64 `yaml:"tolerance"`
	Trials            int     `yaml:"trials"`
	StepScale         float64 `yaml:"step_scale"`
	GradientTolerance float64 `yaml:"gradient_tolerance"`
	MaxIterations     int     `yaml:"max_iterations"`
	Seed              uint64  `yaml:"seed"` // 0 picks a fresh seed per run
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default mirrors the historical command-line defaults: 2010-2020, $100 price cap, yearly returns.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:   "9095",
			DBPath: "savefiles/minvar.db",
		},
		Data: DataConfig{
			MaxPrice:    100,
			StartYear:   2010,
			EndYear:     2020,
			Period:      "1y",
			YahooRPS:    2,
			YahooBurst:  4,
			Concurrency: 4,
			CacheTTL:    0,
		},
		Optimizer: OptimizerConfig{
			Method:            string(portfolio.MethodMonteCarlo),
			Tolerance:         portfolio.DefaultTolerance,
			Trials:            portfolio.DefaultTrials,
			StepScale:         portfolio.DefaultStepScale,
			GradientTolerance: portfolio.DefaultGradientTolerance,
			MaxIterations:     portfolio.DefaultMaxIterations,
		},
		Log: LogConfig{Level: "info", Pretty: true},
	}
}

// Load starts from Default, applies the YAML file at path (if any) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(k string, dst *string) {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}
	setString("TELEGRAM_BOT_TOKEN", &c.Server.TelegramToken)
	setString("WEBHOOK_PUBLIC_URL", &c.Server.WebhookPublicURL)
	setString("OPENAI_API_KEY", &c.Server.OpenAIKey)
	setString("PORT", &c.Server.Port)
	setString("DB_PATH", &c.Server.DBPath)
	setString("MINVAR_LOG_LEVEL", &c.Log.Level)
	setString("MINVAR_METHOD", &c.Optimizer.Method)

	if v := os.Getenv("MINVAR_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MINVAR_SEED %q: %w", v, err)
		}
		c.Optimizer.Seed = seed
	}
	if v := os.Getenv("MINVAR_MAX_PRICE"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid MINVAR_MAX_PRICE %q: %w", v, err)
		}
		c.Data.MaxPrice = p
	}
	return nil
}

// Validate rejects settings no run could work with.
func (c Config) Validate() error {
	var errs []error
	if _, err := portfolio.ParseMethod(c.Optimizer.Method); err != nil {
		errs = append(errs, err)
	}
	if c.Optimizer.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("optimizer tolerance must be positive, got %g", c.Optimizer.Tolerance))
	}
	if c.Optimizer.Trials < 0 {
		errs = append(errs, fmt.Errorf("optimizer trials must be >= 0, got %d", c.Optimizer.Trials))
	}
	if c.Optimizer.StepScale <= 0 {
		errs = append(errs, fmt.Errorf("optimizer step_scale must be positive, got %g", c.Optimizer.StepScale))
	}
	if c.Optimizer.GradientTolerance < 0 {
		errs = append(errs, fmt.Errorf("optimizer gradient_tolerance must be >= 0, got %g", c.Optimizer.GradientTolerance))
	}
	if c.Optimizer.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("optimizer max_iterations must be >= 0, got %d", c.Optimizer.MaxIterations))
	}
	if c.Data.MaxPrice <= 0 {
		errs = append(errs, fmt.Errorf("data max_price must be positive, got %g", c.Data.MaxPrice))
	}
	if c.Data.EndYear <= c.Data.StartYear {
		errs = append(errs, fmt.Errorf("data end_year (%d) must be after start_year (%d)", c.Data.EndYear, c.Data.StartYear))
	}
	switch c.Data.Period {
	case "1y", "1mo", "1d":
	default:
		errs = append(errs, fmt.Errorf("data period must be 1y, 1mo or 1d, got %q", c.Data.Period))
	}
	if c.Data.YahooRPS <= 0 || c.Data.YahooBurst <= 0 {
		errs = append(errs, fmt.Errorf("data yahoo_rps and yahoo_burst must be positive"))
	}
	if c.Data.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("data concurrency must be positive, got %d", c.Data.Concurrency))
	}
	return errors.Join(errs...)
}

// RequireBot checks the secrets the Telegram webhook needs.
func (c Config) RequireBot() error {
	var missing []string
	if c.Server.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.Server.WebhookPublicURL == "" {
		missing = append(missing, "WEBHOOK_PUBLIC_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env %s", strings.Join(missing, ", "))
	}
	return nil
}

// PortfolioOptions maps the optimizer and data sections onto a pipeline run.
func (c Config) PortfolioOptions(target float64) portfolio.Options {
	method, _ := portfolio.ParseMethod(c.Optimizer.Method)
	return portfolio.Options{
		Target:            target,
		Tolerance:         c.Optimizer.Tolerance,
		MaxPrice:          c.Data.MaxPrice,
		Method:            method,
		Trials:            c.Optimizer.Trials,
		StepScale:         c.Optimizer.StepScale,
		GradientTolerance: c.Optimizer.GradientTolerance,
		MaxIterations:     c.Optimizer.MaxIterations,
	}
}
