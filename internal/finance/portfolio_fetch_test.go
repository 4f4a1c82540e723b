package finance

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned assets and counts calls per symbol.
type fakeFetcher struct {
	mu     sync.Mutex
	assets map[string]AssetData
	calls  map[string]int
}

func newFakeFetcher(assets ...AssetData) *fakeFetcher {
	f := &fakeFetcher{assets: map[string]AssetData{}, calls: map[string]int{}}
	for _, a := range assets {
		f.assets[a.Symbol] = a
	}
	return f
}

func (f *fakeFetcher) FetchDaily(_ context.Context, symbol string, _, _ time.Time) (AssetData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	a, ok := f.assets[symbol]
	if !ok {
		return AssetData{}, errors.New("not found")
	}
	return a, nil
}

type memCache struct {
	data  map[string][]byte
	saves int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) LoadPrices(key string, _ time.Duration) ([]byte, bool, error) {
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memCache) SavePrices(key string, payload []byte) error {
	m.saves++
	m.data[key] = payload
	return nil
}

var span2010 = Span{StartYear: 2010, EndYear: 2012}

func TestParseSpan(t *testing.T) {
	s, err := ParseSpan("2010-2020")
	require.NoError(t, err)
	assert.Equal(t, Span{StartYear: 2010, EndYear: 2020}, s)
	assert.Equal(t, "2010-2020", s.String())

	s, err = ParseSpan("2005:2015")
	require.NoError(t, err)
	assert.Equal(t, 2005, s.StartYear)

	for _, bad := range []string{"2010", "2020-2010", "abcd-2010", "2010-2010"} {
		_, err := ParseSpan(bad)
		assert.Error(t, err, bad)
	}
}

func TestFetchUniverse_CacheFirst(t *testing.T) {
	f := newFakeFetcher(alignFixture()...)
	cache := newMemCache()
	symbols := []string{"AAA", "BBB"}

	first, err := FetchUniverse(context.Background(), f, cache, symbols, span2010, 2, 0)
	require.NoError(t, err)
	second, err := FetchUniverse(context.Background(), f, cache, symbols, span2010, 2, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls["AAA"])
	assert.Equal(t, 1, cache.saves)
	assert.Equal(t, first, second)
	assert.Contains(t, cache.data, "2010,2012,AAA,BBB")
}

func TestFetchUniverse_OrderMattersForCacheKey(t *testing.T) {
	f := newFakeFetcher(alignFixture()...)
	cache := newMemCache()

	_, err := FetchUniverse(context.Background(), f, cache, []string{"AAA", "BBB"}, span2010, 1, 0)
	require.NoError(t, err)
	_, err = FetchUniverse(context.Background(), f, cache, []string{"BBB", "AAA"}, span2010, 1, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, f.calls["AAA"])
}

func TestFetchUniverse_PartialFailureKeepsOrderAndSkipsCache(t *testing.T) {
	f := newFakeFetcher(alignFixture()...)
	cache := newMemCache()

	assets, err := FetchUniverse(context.Background(), f, cache, []string{"AAA", "NOPE", "BBB"}, span2010, 3, 0)

	require.NoError(t, err)
	require.Len(t, assets, 3)
	assert.Equal(t, "AAA", assets[0].Symbol)
	assert.Equal(t, "NOPE", assets[1].Symbol)
	assert.Empty(t, assets[1].Timestamps)
	assert.Equal(t, "BBB", assets[2].Symbol)
	assert.Zero(t, cache.saves)
}

func TestFetchUniverse_TotalFailure(t *testing.T) {
	_, err := FetchUniverse(context.Background(), newFakeFetcher(), nil, []string{"X", "Y"}, span2010, 2, 0)
	assert.Error(t, err)

	_, err = FetchUniverse(context.Background(), newFakeFetcher(), nil, nil, span2010, 2, 0)
	assert.Error(t, err)
}

func TestEncodeAssets_KeepsMissingCloses(t *testing.T) {
	in := []AssetData{{Symbol: "A", Timestamps: []int64{1, 2}, Prices: []float64{math.NaN(), 3}}}

	payload, err := encodeAssets(in)
	require.NoError(t, err)
	out, err := decodeAssets(payload)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.True(t, math.IsNaN(out[0].Prices[0]))
	assert.Equal(t, 3.0, out[0].Prices[1])
}

func TestDecodeAssets_Corrupt(t *testing.T) {
	_, err := decodeAssets([]byte("not json"))
	assert.Error(t, err)
}
