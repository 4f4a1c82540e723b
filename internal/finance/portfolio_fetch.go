package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"corrMinvar/internal/metrics"
)

// Span is an inclusive-exclusive range of calendar years, e.g. 2010-2020.
type Span struct {
	StartYear int
	EndYear   int
}

// ParseSpan accepts "2010-2020" or "2010:2020".
func ParseSpan(s string) (Span, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, "-:")
	if sep < 0 {
		return Span{}, fmt.Errorf("invalid span %q (use YYYY-YYYY)", s)
	}
	start, err := strconv.Atoi(s[:sep])
	if err != nil {
		return Span{}, fmt.Errorf("invalid span start %q: %w", s[:sep], err)
	}
	end, err := strconv.Atoi(s[sep+1:])
	if err != nil {
		return Span{}, fmt.Errorf("invalid span end %q: %w", s[sep+1:], err)
	}
	span := Span{StartYear: start, EndYear: end}
	return span, span.Validate()
}

func (s Span) Validate() error {
	if s.StartYear < 1900 || s.EndYear > 2200 {
		return fmt.Errorf("span %s out of range", s)
	}
	if s.EndYear <= s.StartYear {
		return fmt.Errorf("span end %d must be after start %d", s.EndYear, s.StartYear)
	}
	return nil
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.StartYear, s.EndYear)
}

// Window is the download range: January 2nd of the start year up to January 1st of the end year.
func (s Span) Window() (time.Time, time.Time) {
	loc := marketTime()
	return time.Date(s.StartYear, time.January, 2, 0, 0, 0, 0, loc),
		time.Date(s.EndYear, time.January, 1, 0, 0, 0, 0, loc)
}

// Fetcher downloads one symbol. *Client implements it.
type Fetcher interface {
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) (AssetData, error)
}

// PriceCache memoizes downloads. *storage.Store implements it.
type PriceCache interface {
	LoadPrices(key string, maxAge time.Duration) ([]byte, bool, error)
	SavePrices(key string, payload []byte) error
}

// cacheKey follows the catalogue layout: start,end,tickers in request order.
func cacheKey(span Span, symbols []string) string {
	return fmt.Sprintf("%d,%d,%s", span.StartYear, span.EndYear, strings.Join(symbols, ","))
}

// cachedAsset stores closes as pointers because JSON has no NaN.
type cachedAsset struct {
	Symbol     string     `json:"symbol"`
	Timestamps []int64    `json:"timestamps"`
	Prices     []*float64 `json:"prices"`
}

func encodeAssets(assets []AssetData) ([]byte, error) {
	out := make([]cachedAsset, len(assets))
	for i, a := range assets {
		prices := make([]*float64, len(a.Prices))
		for j := range a.Prices {
			if !math.IsNaN(a.Prices[j]) {
				v := a.Prices[j]
				prices[j] = &v
			}
		}
		out[i] = cachedAsset{Symbol: a.Symbol, Timestamps: a.Timestamps, Prices: prices}
	}
	return json.Marshal(out)
}

func decodeAssets(payload []byte) ([]AssetData, error) {
	var in []cachedAsset
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("failed to decode cached prices: %w", err)
	}
	out := make([]AssetData, len(in))
	for i, a := range in {
		out[i] = AssetData{Symbol: a.Symbol, Timestamps: a.Timestamps, Prices: derefCloses(a.Prices)}
	}
	return out, nil
}

// FetchUniverse returns daily closes for every symbol, in input order. A symbol
// that cannot be downloaded comes back empty and is dropped later by the optimizer;
// only a total failure is an error. cache may be nil.
func FetchUniverse(ctx context.Context, f Fetcher, cache PriceCache, symbols []string, span Span, concurrency int, maxAge time.Duration) ([]AssetData, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}
	key := cacheKey(span, symbols)
	if cache != nil {
		payload, ok, err := cache.LoadPrices(key, maxAge)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("cache: load failed")
		case ok:
			assets, err := decodeAssets(payload)
			if err == nil {
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				log.Debug().Str("key", key).Msg("cache: hit")
				return assets, nil
			}
			log.Warn().Err(err).Msg("cache: corrupt entry")
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	start, end := span.Window()
	assets := make([]AssetData, len(symbols))
	errs := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, sym := range symbols {
		g.Go(func() error {
			a, err := f.FetchDaily(gctx, sym, start, end)
			if err != nil {
				// cancellation aborts the whole batch, anything else only loses this symbol
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errs[i] = err
				assets[i] = AssetData{Symbol: strings.ToUpper(sym)}
				log.Warn().Err(err).Str("ticker", sym).Msg("yahoo: skipping ticker")
				return nil
			}
			assets[i] = a
			log.Debug().Str("ticker", a.Symbol).Int("points", len(a.Timestamps)).Msg("yahoo: fetched")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(symbols) {
		return nil, fmt.Errorf("failed to fetch all %d symbols: %w", failed, errs[0])
	}

	if cache != nil && failed == 0 {
		payload, err := encodeAssets(assets)
		if err == nil {
			err = cache.SavePrices(key, payload)
		}
		if err != nil {
			log.Warn().Err(err).Msg("cache: save failed")
		}
	}
	return assets, nil
}
