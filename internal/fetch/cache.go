package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedFetcher keeps recently downloaded payloads in memory so that
// re-analysing the same certificate does not download it again.
type CachedFetcher struct {
	next  Fetcher
	cache *gocache.Cache
	ttl   time.Duration
}

// NewCachedFetcher wraps next. A non-positive ttl disables caching.
func NewCachedFetcher(next Fetcher, ttl time.Duration) Fetcher {
	if ttl <= 0 {
		return next
	}
	return &CachedFetcher{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	key := cacheKey(locator)
	if v, ok := c.cache.Get(key); ok {
		return v.([]byte), nil
	}
	body, err := c.next.Fetch(ctx, locator)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, body, c.ttl)
	return body, nil
}

// Len reports the number of cached payloads.
func (c *CachedFetcher) Len() int {
	return c.cache.ItemCount()
}

func cacheKey(locator string) string {
	sum := sha256.Sum256([]byte(locator))
	return hex.EncodeToString(sum[:])
}
