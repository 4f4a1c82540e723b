// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	YahooRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minvar_yahoo_requests_total",
		Help: "Yahoo Finance requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minvar_price_cache_lookups_total",
		Help: "Price cache lookups by result (hit or miss).",
	}, []string{"result"})

	OptimizerRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minvar_optimizer_runs_total",
		Help: "Optimizer runs by method and outcome.",
	}, []string{"method", "outcome"})

	OptimizerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "minvar_optimizer_duration_seconds",
		Help:    "Wall time of the core pipeline.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"method"})

	PortfolioSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "minvar_portfolio_instruments",
		Help:    "Instruments left after price and target-band filtering.",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100},
	})

	BotCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minvar_bot_commands_total",
		Help: "Telegram commands handled.",
	}, []string{"command"})
)

var (
	registry *prometheus.Registry
	once     sync.Once
)

// Registry returns the process registry with every collector registered.
func Registry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			YahooRequests,
			CacheLookups,
			OptimizerRuns,
			OptimizerDuration,
			PortfolioSize,
			BotCommands,
		)
	})
	return registry
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}
