package catalog

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/metrics"
)

// CachedProvider memoizes searches by exact keyword. Only non-empty results
// are stored, so a transient catalog failure is retried on the next call.
// Concurrent misses for one keyword share a single upstream fetch.
type CachedProvider struct {
	next    Provider
	metrics *metrics.Collectors
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string][]gift.Product
}

// NewCachedProvider wraps next. m may be nil.
func NewCachedProvider(next Provider, m *metrics.Collectors) *CachedProvider {
	return &CachedProvider{
		next:    next,
		metrics: m,
		entries: make(map[string][]gift.Product),
	}
}

// Search returns a copy of the cached result for keyword, fetching on a
// miss.
func (c *CachedProvider) Search(ctx context.Context, keyword string) []gift.Product {
	c.mu.RLock()
	hit, ok := c.entries[keyword]
	c.mu.RUnlock()
	if ok {
		c.metrics.CatalogFetch(metrics.FetchCacheHit)
		return slices.Clone(hit)
	}

	// The fetch is shared, so one caller's cancellation must not empty the
	// result for the others. The upstream client's timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	v, _, _ := c.group.Do(keyword, func() (any, error) {
		c.mu.RLock()
		hit, ok := c.entries[keyword]
		c.mu.RUnlock()
		if ok {
			return hit, nil
		}
		products := c.next.Search(shared, keyword)
		if len(products) > 0 {
			c.mu.Lock()
			c.entries[keyword] = products
			c.mu.Unlock()
		}
		return products, nil
	})

	products, _ := v.([]gift.Product)
	if products == nil {
		return []gift.Product{}
	}
	return slices.Clone(products)
}

// Clear drops every cached keyword.
func (c *CachedProvider) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]gift.Product)
	c.mu.Unlock()
}

// Len reports the number of cached keywords.
func (c *CachedProvider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
