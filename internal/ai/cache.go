package ai

import (
	"context"
	"sync"
)

// cacheKeyChars is how much of the input text participates in the embedding
// cache key. Texts sharing a model and their first 100 characters share an
// embedding.
const cacheKeyChars = 100

type embeddingKey struct {
	model  string
	prefix string
}

// CachedEmbedder memoizes an Embedder. It is process-local, unbounded and
// never invalidated; each pipeline instance should own (or explicitly share)
// one.
type CachedEmbedder struct {
	next Embedder

	mu    sync.RWMutex
	cache map[embeddingKey][]float64
}

// NewCachedEmbedder wraps next with an in-memory cache.
func NewCachedEmbedder(next Embedder) *CachedEmbedder {
	return &CachedEmbedder{
		next:  next,
		cache: make(map[embeddingKey][]float64),
	}
}

// Model returns the wrapped embedder's model.
func (c *CachedEmbedder) Model() string { return c.next.Model() }

// Embed returns the cached vector for text, computing it on a miss. Errors
// are not cached.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := embeddingKey{model: c.next.Model(), prefix: truncateRunes(text, cacheKeyChars)}

	c.mu.RLock()
	vec, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = vec
	c.mu.Unlock()
	return vec, nil
}

// Len reports the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
