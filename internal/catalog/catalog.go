// Package catalog provides the product search feed the recommendation
// pipeline draws candidates from.
package catalog

import (
	"context"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
)

// Provider searches the product catalog.
//
// Search returns products ordered by catalog popularity (rank 1 first). It
// never returns an error: any failure yields an empty slice, and the
// pipeline's minimum-candidate check is the single failure signal.
// Implementations must be safe to call concurrently.
type Provider interface {
	Search(ctx context.Context, keyword string) []gift.Product
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, keyword string) []gift.Product

func (f ProviderFunc) Search(ctx context.Context, keyword string) []gift.Product {
	return f(ctx, keyword)
}
