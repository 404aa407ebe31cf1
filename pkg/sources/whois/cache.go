package whois

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wingedpig/ipowners/pkg/model"
	"github.com/wingedpig/ipowners/pkg/respcache"
)

// DefaultCacheTTL is how long a cached response is served without refetching
const DefaultCacheTTL = 168 * time.Hour

// CachedClient wraps a Querier with a persistent response cache
type CachedClient struct {
	next     Querier
	cache    *respcache.Cache
	cacheTTL time.Duration
	now      func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedClient creates a new cached client
func NewCachedClient(next Querier, cache *respcache.Cache, cacheTTL time.Duration) *CachedClient {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &CachedClient{
		next:     next,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Query serves fresh cache entries, otherwise asks the wrapped client.
// Successful answers are stored; a failed refetch falls back to an expired entry.
func (c *CachedClient) Query(ctx context.Context, target model.Target) model.RawResponse {
	cached, err := c.cache.Get(target.Value)
	if err != nil {
		log.Printf("WARN: Cache read failed for %s: %v", target.Value, err)
		cached = nil
	}

	if cached != nil && c.now().Sub(cached.FetchedAt) < c.cacheTTL {
		c.hits.Add(1)
		return model.RawResponse{
			Target: target,
			Text:   cached.Text,
			Status: model.StatusCached,
		}
	}
	c.misses.Add(1)

	resp := c.next.Query(ctx, target)

	if resp.Status == model.StatusOK && strings.TrimSpace(resp.Text) != "" {
		entry := respcache.Entry{Text: resp.Text, FetchedAt: c.now()}
		if err := c.cache.Put(target.Value, entry); err != nil {
			log.Printf("WARN: Failed to cache WHOIS response for %s: %v", target.Value, err)
		}
		return resp
	}

	if cached != nil {
		log.Printf("WARN: Query %s for %s, using expired cache", resp.Status, target.Value)
		return model.RawResponse{
			Target:  target,
			Text:    cached.Text,
			Status:  model.StatusCached,
			Elapsed: resp.Elapsed,
			Err:     resp.Err,
		}
	}

	return resp
}

// Stats returns cache hit and miss counts
func (c *CachedClient) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
