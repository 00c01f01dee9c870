// Package uniques maintains the curated "default uniques" product pool and
// picks from it when semantic filtering yields no unique candidate.
package uniques

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/nyashahama/gift-genius-backend/internal/catalog"
	"github.com/nyashahama/gift-genius-backend/internal/gift"
)

// DefaultKeywords are the fixed searches the curated pool is built from.
var DefaultKeywords = []string{"wellness", "hot sauce", "plants", "sculpd"}

// DefaultPerKeyword is how many top results each keyword contributes.
const DefaultPerKeyword = 5

// Store persists the curated pool between restarts. The Postgres store
// implements it; nil disables persistence.
type Store interface {
	LoadDefaultUniques(ctx context.Context) ([]gift.Product, error)
	SaveDefaultUniques(ctx context.Context, products []gift.Product) error
	ClearDefaultUniques(ctx context.Context) error
}

// Pool is the curated product set. Lookup order is memory, then Store, then
// a fresh catalog fetch (which is saved back to the Store).
type Pool struct {
	catalog    catalog.Provider
	store      Store
	keywords   []string
	perKeyword int
	logger     *slog.Logger

	mu       sync.Mutex
	products []gift.Product
}

// NewPool returns a Pool over the default keywords. store may be nil.
func NewPool(cat catalog.Provider, store Store, logger *slog.Logger) *Pool {
	return &Pool{
		catalog:    cat,
		store:      store,
		keywords:   DefaultKeywords,
		perKeyword: DefaultPerKeyword,
		logger:     logger,
	}
}

// Products returns the curated pool, loading it on first use. The returned
// slice is a copy.
func (p *Pool) Products(ctx context.Context) []gift.Product {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.products) == 0 && p.store != nil {
		loaded, err := p.store.LoadDefaultUniques(ctx)
		if err != nil {
			p.logger.Warn("uniques: load from store failed", "error", err)
		}
		p.products = loaded
	}
	if len(p.products) == 0 {
		p.products = p.fetch(ctx)
		p.save(ctx)
	}
	return slices.Clone(p.products)
}

// Refresh refetches the pool from the catalog and replaces the stored copy.
func (p *Pool) Refresh(ctx context.Context) []gift.Product {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.products = p.fetch(ctx)
	p.save(ctx)
	return slices.Clone(p.products)
}

// Clear drops the in-memory and stored pool.
func (p *Pool) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.products = nil
	if p.store == nil {
		return nil
	}
	return p.store.ClearDefaultUniques(ctx)
}

// fetch runs every keyword search, keeps the top perKeyword of each, and
// drops repeated ids keeping the first occurrence.
func (p *Pool) fetch(ctx context.Context) []gift.Product {
	seen := make(map[string]struct{})
	var out []gift.Product
	for _, kw := range p.keywords {
		results := p.catalog.Search(ctx, kw)
		if len(results) > p.perKeyword {
			results = results[:p.perKeyword]
		}
		for _, prod := range results {
			if _, dup := seen[prod.ID]; dup {
				continue
			}
			seen[prod.ID] = struct{}{}
			out = append(out, prod)
		}
	}
	p.logger.Info("uniques: fetched curated pool", "count", len(out))
	return out
}

func (p *Pool) save(ctx context.Context) {
	if p.store == nil || len(p.products) == 0 {
		return
	}
	if err := p.store.SaveDefaultUniques(ctx, p.products); err != nil {
		p.logger.Warn("uniques: save to store failed", "error", err)
	}
}
