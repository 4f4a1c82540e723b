package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"corrMinvar/internal/metrics"
)

const (
	userAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"
	previewLen = 120
)

var defaultBaseURLs = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}

var defaultBackoffs = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

type ClientOptions struct {
	BaseURLs   []string // scheme://host, defaults to query1 and query2
	HTTPClient *http.Client
	RPS        float64
	Burst      int
	Backoffs   []time.Duration
}

// Client downloads daily closes from Yahoo Finance. Safe for concurrent use.
type Client struct {
	baseURLs []string
	http     *http.Client
	limiter  *rate.Limiter
	backoffs []time.Duration
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewClient(opts ClientOptions) *Client {
	c := &Client{
		baseURLs: opts.BaseURLs,
		http:     opts.HTTPClient,
		backoffs: opts.Backoffs,
		breakers: map[string]*gobreaker.CircuitBreaker{},
	}
	if len(c.baseURLs) == 0 {
		c.baseURLs = defaultBaseURLs
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 20 * time.Second}
	}
	if c.backoffs == nil {
		c.backoffs = defaultBackoffs
	}
	rps, burst := opts.RPS, opts.Burst
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)

	// one breaker per host so a throttled query1 does not take query2 down with it
	for _, base := range c.baseURLs {
		c.breakers[base] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    base,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("host", name).Str("from", from.String()).Str("to", to.String()).Msg("yahoo: breaker state change")
			},
		})
	}
	return c
}

// FetchDaily returns daily closes for symbol between start and end. Missing and
// non-positive closes come back as NaN so the timeline stays intact.
func (c *Client) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (AssetData, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return AssetData{}, errors.New("empty symbol")
	}

	chartPath := fmt.Sprintf("/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div,splits",
		url.PathEscape(symbol), start.Unix(), end.Unix())
	var yc yahooChartResp
	err := c.getJSON(ctx, "chart", chartPath, symbol, &yc)
	if err == nil {
		if ts, cl, ok := yc.series(); ok {
			ts, cl = clipWindow(ts, maskNonPositive(cl), start.Unix(), end.Unix())
			return AssetData{Symbol: symbol, Timestamps: ts, Prices: cl}, nil
		}
		err = fmt.Errorf("no chart data for %s", symbol)
	}
	if ctx.Err() != nil {
		return AssetData{}, ctx.Err()
	}
	log.Warn().Err(err).Str("ticker", symbol).Msg("yahoo: chart failed, trying spark")

	// spark has no period parameters, so take everything and clip locally
	sparkPath := fmt.Sprintf("/v7/finance/spark?symbols=%s&range=max&interval=1d", url.QueryEscape(symbol))
	var sp yahooSparkResp
	if sparkErr := c.getJSON(ctx, "spark", sparkPath, symbol, &sp); sparkErr != nil {
		return AssetData{}, fmt.Errorf("failed to fetch %s: %w", symbol, errors.Join(err, sparkErr))
	}
	ts, cl, ok := sp.series()
	if !ok {
		return AssetData{}, fmt.Errorf("no data available for %s", symbol)
	}
	ts, cl = clipWindow(ts, maskNonPositive(cl), start.Unix(), end.Unix())
	if len(ts) == 0 {
		return AssetData{}, fmt.Errorf("no data available for %s in window", symbol)
	}
	return AssetData{Symbol: symbol, Timestamps: ts, Prices: cl}, nil
}

// getJSON walks every host for each backoff round until one answers with parseable JSON.
func (c *Client) getJSON(ctx context.Context, endpoint, path, symbol string, out any) error {
	var lastErr error
	for attempt := 0; attempt < len(c.backoffs)+1; attempt++ {
		for _, base := range c.baseURLs {
			body, err := c.get(ctx, base, path, symbol)
			if err == nil {
				if err = json.Unmarshal(body, out); err == nil {
					metrics.YahooRequests.WithLabelValues(endpoint, "ok").Inc()
					return nil
				}
				err = fmt.Errorf("failed to parse yahoo json: %w; body: %s", err, preview(body))
			}
			metrics.YahooRequests.WithLabelValues(endpoint, "error").Inc()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		}
		if attempt < len(c.backoffs) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoffs[attempt]):
			}
		}
	}
	return lastErr
}

func (c *Client) get(ctx context.Context, base, path, symbol string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.breakers[base].Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/history", symbol))
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read yahoo response: %w", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
			return nil, fmt.Errorf("yahoo %s returned 429: Edge: Too Many Requests", base)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo %s returned %d: %s", base, resp.StatusCode, preview(body))
		}
		if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
			return nil, fmt.Errorf("yahoo returned non-json body: %s", preview(body))
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func preview(body []byte) string {
	if len(body) > previewLen {
		return string(body[:previewLen])
	}
	return string(body)
}
