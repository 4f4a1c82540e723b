package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChartCache(t *testing.T) {
	cacheSet("k", []byte{1, 2, 3})

	img, ok := cacheGet("k")
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, img)

	img[0] = 9
	again, _ := cacheGet("k")
	assert.Equal(t, byte(1), again[0], "callers get a copy")

	_, ok = cacheGet("missing")
	assert.False(t, ok)
}

func TestChartCache_Expired(t *testing.T) {
	chartCacheMu.Lock()
	chartCache["old"] = chartCacheEntry{createdAt: time.Now().Add(-2 * chartCacheTTL), image: []byte{1}}
	chartCacheMu.Unlock()

	_, ok := cacheGet("old")

	assert.False(t, ok)
}
