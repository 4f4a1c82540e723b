package finance

import (
	"sync"
	"time"
)

// Rendered PNGs keyed by analysis; the bot re-sends them when a request repeats.
var (
	chartCache   = map[string]chartCacheEntry{}
	chartCacheMu sync.Mutex
)

func cacheGet(key string) ([]byte, bool) {
	chartCacheMu.Lock()
	defer chartCacheMu.Unlock()
	if entry, ok := chartCache[key]; ok {
		if time.Now().Before(entry.createdAt.Add(chartCacheTTL)) {
			img := make([]byte, len(entry.image))
			copy(img, entry.image)
			return img, true
		}
		delete(chartCache, key)
	}
	return nil, false
}

func cacheSet(key string, img []byte) {
	chartCacheMu.Lock()
	defer chartCacheMu.Unlock()
	now := time.Now()
	for k, e := range chartCache {
		if now.After(e.createdAt.Add(chartCacheTTL)) {
			delete(chartCache, k)
		}
	}
	chartCache[key] = chartCacheEntry{createdAt: now, image: img}
}
