// Package fetch retrieves certificate payloads by locator.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/common"
)

// Fetcher downloads the raw bytes addressed by a locator. Failures are
// reported as RETRIEVAL_ERROR.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, locator string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, locator string) ([]byte, error) {
	return f(ctx, locator)
}

// Router dispatches on the locator scheme.
type Router struct {
	routes map[string]Fetcher
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]Fetcher)}
}

// Handle registers f for each scheme, replacing any previous registration.
func (r *Router) Handle(f Fetcher, schemes ...string) *Router {
	for _, s := range schemes {
		r.routes[constants.NormalizeScheme(s)] = f
	}
	return r
}

// Schemes lists the registered schemes.
func (r *Router) Schemes() []string {
	out := make([]string, 0, len(r.routes))
	for s := range r.routes {
		out = append(out, s)
	}
	return out
}

func (r *Router) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, common.Retrieval("empty document locator", nil)
	}
	u, err := url.Parse(locator)
	if err != nil {
		return nil, common.Retrieval("malformed document locator", err)
	}
	f, ok := r.routes[constants.NormalizeScheme(u.Scheme)]
	if !ok {
		return nil, common.Retrieval(fmt.Sprintf("unsupported locator scheme %q", u.Scheme), nil)
	}
	return f.Fetch(ctx, locator)
}
