package fetch

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/certverify/internal/common"
)

// LimitedFetcher throttles downloads per host.
type LimitedFetcher struct {
	next     Fetcher
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewLimitedFetcher wraps next. A non-positive rps disables limiting.
func NewLimitedFetcher(next Fetcher, rps float64, burst int) Fetcher {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &LimitedFetcher{
		next:     next,
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *LimitedFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, common.Retrieval("malformed document locator", err)
	}
	if err := l.limiter(u.Host).Wait(ctx); err != nil {
		return nil, common.Retrieval("rate limit wait", err)
	}
	return l.next.Fetch(ctx, locator)
}

func (l *LimitedFetcher) limiter(host string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[host]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[host]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.rps, l.burst)
	l.limiters[host] = lim
	return lim
}
