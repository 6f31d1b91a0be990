package fetch

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// DefaultCacheTTL keeps a fetched page around long enough to cover a
// reprocess of the same listing without hammering the board.
const DefaultCacheTTL = 1 * time.Hour

// failureBackoff is how long a failed URL stays on the deny list before a
// retry is allowed.
const failureBackoff = 5 * time.Minute

// CachedFetcher wraps a Fetcher with an in-memory page cache and a
// short-lived deny list for URLs that recently failed.
type CachedFetcher struct {
	fetcher  *Fetcher
	pages    *gocache.Cache
	failures *gocache.Cache
	logger   *zap.Logger
}

// CachedResult extends Result with cache metadata.
type CachedResult struct {
	*Result
	FromCache bool
}

// NewCachedFetcher creates a cached fetcher over the given Fetcher. A zero
// ttl uses DefaultCacheTTL.
func NewCachedFetcher(fetcher *Fetcher, ttl time.Duration, logger *zap.Logger) *CachedFetcher {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFetcher{
		fetcher:  fetcher,
		pages:    gocache.New(ttl, 2*ttl),
		failures: gocache.New(failureBackoff, 2*failureBackoff),
		logger:   logger,
	}
}

// Fetch returns the cached page when fresh, otherwise fetches and caches.
// A URL that failed within the backoff window is rejected without a network
// round trip.
func (c *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*CachedResult, error) {
	if cached, ok := c.pages.Get(urlStr); ok {
		c.logger.Debug("page cache hit", zap.String("url", urlStr))
		return &CachedResult{Result: cached.(*Result), FromCache: true}, nil
	}
	if reason, ok := c.failures.Get(urlStr); ok {
		return nil, &Error{
			URL:     urlStr,
			Message: fmt.Sprintf("recently failed, retry later: %v", reason),
		}
	}

	result, err := c.fetcher.Fetch(ctx, urlStr)
	if err != nil {
		c.failures.SetDefault(urlStr, err.Error())
		return nil, err
	}

	c.pages.SetDefault(urlStr, result)
	return &CachedResult{Result: result, FromCache: false}, nil
}

// Invalidate drops a URL from the page cache, forcing the next Fetch to hit
// the network.
func (c *CachedFetcher) Invalidate(urlStr string) {
	c.pages.Delete(urlStr)
	c.failures.Delete(urlStr)
}
