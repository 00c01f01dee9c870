package uniques

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/nyashahama/gift-genius-backend/internal/ai"
	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/metrics"
	"github.com/nyashahama/gift-genius-backend/internal/safety"
)

// PoolLabel names the curated pool in safety prompts and logs.
const PoolLabel = "Default Uniques"

// Source supplies the curated pool. *Pool implements it.
type Source interface {
	Products(ctx context.Context) []gift.Product
}

// Pick is a product chosen from the curated pool. Semantic is false when the
// product was drawn at random because semantic ranking was unavailable.
type Pick struct {
	Product    gift.Product
	Similarity float64
	Semantic   bool
}

// PickerDeps wires a Picker. Intn defaults to math/rand/v2.IntN; tests
// inject a deterministic one.
type PickerDeps struct {
	Source   Source
	Screener *safety.Screener
	Embedder ai.Embedder
	Logger   *slog.Logger
	Metrics  *metrics.Collectors
	Intn     func(n int) int
}

// Picker selects one product from the curated pool for a recipient.
type Picker struct {
	source   Source
	screener *safety.Screener
	embedder ai.Embedder
	logger   *slog.Logger
	metrics  *metrics.Collectors
	intn     func(int) int
}

// NewPicker returns a Picker.
func NewPicker(d PickerDeps) *Picker {
	if d.Intn == nil {
		d.Intn = rand.IntN
	}
	return &Picker{
		source:   d.Source,
		screener: d.Screener,
		embedder: d.Embedder,
		logger:   d.Logger,
		metrics:  d.Metrics,
		intn:     d.Intn,
	}
}

// Pick budget-filters the curated pool, screens it for safety, and returns
// the survivor most similar to the recipient. Products whose id is in exclude
// are never picked. It reports false when the pool, the budget-filtered pool,
// or the safe survivors are empty.
func (p *Picker) Pick(ctx context.Context, profile gift.Profile, exclude ...string) (Pick, bool) {
	pool := p.source.Products(ctx)
	if len(pool) == 0 {
		p.logger.Info("uniques: curated pool empty")
		return Pick{}, false
	}
	if pool = gift.Without(pool, exclude...); len(pool) == 0 {
		p.logger.Info("uniques: every curated product already picked", "excluded", len(exclude))
		return Pick{}, false
	}

	inBudget := gift.FilterBudget(pool, profile.BudgetMin, profile.BudgetMax)
	if len(inBudget) == 0 {
		p.logger.Info("uniques: no curated products within budget", "pool", len(pool))
		return Pick{}, false
	}

	safe, err := p.screener.Screen(ctx, inBudget, safety.FromProfile(profile), PoolLabel)
	if err != nil {
		p.logger.Warn("uniques: safety screen failed", "error", err)
		return Pick{}, false
	}
	if len(safe) == 0 {
		p.logger.Info("uniques: no curated products passed safety", "candidates", len(inBudget))
		return Pick{}, false
	}

	if profile.Description == "" {
		p.metrics.SemanticRankingUnavailable("no_description")
		return p.random(safe), true
	}

	best, ok, err := p.rank(ctx, profile, safe)
	if err != nil {
		p.logger.Warn("uniques: semantic ranking unavailable, picking at random", "error", err)
		p.metrics.SemanticRankingUnavailable("embedding_error")
		return p.random(safe), true
	}
	return best, ok
}

// rank embeds the recipient profile and every survivor and returns the
// highest-similarity survivor. The first maximum wins.
func (p *Picker) rank(ctx context.Context, profile gift.Profile, safe []gift.Product) (Pick, bool, error) {
	target, err := p.embedder.Embed(ctx, ProfileText(profile))
	if err != nil {
		return Pick{}, false, err
	}

	var best Pick
	for i, prod := range safe {
		vec, err := p.embedder.Embed(ctx, prod.Name+" "+prod.Description)
		if err != nil {
			return Pick{}, false, err
		}
		sim := ai.Cosine(target, vec)
		if i == 0 || sim > best.Similarity {
			best = Pick{Product: prod, Similarity: sim, Semantic: true}
		}
	}
	return best, true, nil
}

func (p *Picker) random(safe []gift.Product) Pick {
	return Pick{Product: safe[p.intn(len(safe))]}
}

// ProfileText is the composite recipient text the curated pool is ranked
// against. Empty parts are omitted.
func ProfileText(profile gift.Profile) string {
	var parts []string
	if profile.Description != "" {
		parts = append(parts, "Description: "+profile.Description)
	}
	if len(profile.Loves) > 0 {
		parts = append(parts, "Loves: "+strings.Join(profile.Loves, ", "))
	}
	if len(profile.Hates) > 0 {
		parts = append(parts, "Hates: "+strings.Join(profile.Hates, ", "))
	}
	return strings.Join(parts, "\n")
}
