package evidence

import (
	"context"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Prober checks whether a candidate URL answers at all before it is allowed
// into the final evidence list. Results are cached for the lifetime of the
// process so a URL is never probed twice.
type Prober struct {
	httpClient *http.Client
	userAgent  string
	cache      *gocache.Cache
}

// NewProber creates a reachability prober with the given per-probe timeout
func NewProber(timeout time.Duration, userAgent string) *Prober {
	if timeout == 0 {
		timeout = 2500 * time.Millisecond
	}
	return &Prober{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		cache:      gocache.New(gocache.NoExpiration, 0),
	}
}

// Reachable probes the URL with HEAD, retries once with GET, and caches the
// outcome. Safe for concurrent use.
func (p *Prober) Reachable(ctx context.Context, rawURL string) bool {
	if cached, found := p.cache.Get(rawURL); found {
		return cached.(bool)
	}

	ok := p.try(ctx, http.MethodHead, rawURL)
	if !ok {
		ok = p.try(ctx, http.MethodGet, rawURL)
	}
	// A failure caused by the run's own cancellation says nothing about
	// the URL; leave it uncached so a later run probes it again
	if !ok && ctx.Err() != nil {
		return false
	}
	p.cache.Set(rawURL, ok, gocache.NoExpiration)
	return ok
}

func (p *Prober) try(ctx context.Context, method, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
