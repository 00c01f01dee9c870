package recommend

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/nyashahama/gift-genius-backend/internal/ai"
	"github.com/nyashahama/gift-genius-backend/internal/gift"
)

const (
	// SemanticThreshold is the exclusive lower bound on similarity for a
	// Path B candidate.
	SemanticThreshold = 0.8

	// SemanticTopN caps Path B after sorting by similarity.
	SemanticTopN = 3
)

// SearchKeyword builds the catalog query: the occasion followed by the loved
// items. The budget never appears in it.
func SearchKeyword(p gift.Profile) string {
	return strings.TrimSpace(p.Occasion + " " + strings.Join(p.Loves, ", "))
}

// ExplicitMatches is Path A: products whose name or description mentions at
// least one loved term. With no loves every product is kept.
func ExplicitMatches(products []gift.Product, loves []string) []gift.Product {
	if len(loves) == 0 {
		return slices.Clone(products)
	}
	out := make([]gift.Product, 0, len(products))
	for _, p := range products {
		if _, ok := gift.FirstMention(p.Text(), loves); ok {
			out = append(out, p)
		}
	}
	return out
}

// SemanticMatches is Path B. Products mentioning any loved or hated term are
// excluded; the rest are compared to the recipient description and kept when
// their similarity exceeds SemanticThreshold. The result is sorted by
// descending similarity (stable) and capped at SemanticTopN; sims holds the
// similarity of every returned product.
//
// Without a description both results are empty. An embedding failure is
// returned as an error.
func SemanticMatches(ctx context.Context, e ai.Embedder, products []gift.Product, profile gift.Profile) ([]gift.Product, map[string]float64, error) {
	sims := make(map[string]float64)
	if profile.Description == "" {
		return []gift.Product{}, sims, nil
	}

	excluded := make([]string, 0, len(profile.Loves)+len(profile.Hates))
	excluded = append(excluded, profile.Loves...)
	excluded = append(excluded, profile.Hates...)

	var target []float64
	type scored struct {
		product gift.Product
		sim     float64
	}
	var kept []scored
	for _, p := range products {
		if _, ok := gift.FirstMention(p.Text(), excluded); ok {
			continue
		}
		if target == nil {
			vec, err := e.Embed(ctx, profile.Description)
			if err != nil {
				return nil, nil, fmt.Errorf("recommend: embed description: %w", err)
			}
			target = vec
		}
		vec, err := e.Embed(ctx, p.Name+" "+p.Description)
		if err != nil {
			return nil, nil, fmt.Errorf("recommend: embed product %s: %w", p.ID, err)
		}
		if sim := ai.Cosine(target, vec); sim > SemanticThreshold {
			kept = append(kept, scored{product: p, sim: sim})
		}
	}

	slices.SortStableFunc(kept, func(a, b scored) int {
		switch {
		case a.sim > b.sim:
			return -1
		case a.sim < b.sim:
			return 1
		default:
			return 0
		}
	})
	if len(kept) > SemanticTopN {
		kept = kept[:SemanticTopN]
	}

	out := make([]gift.Product, len(kept))
	for i, k := range kept {
		out[i] = k.product
		sims[k.product.ID] = k.sim
	}
	return out, sims, nil
}
