package recommend

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/metrics"
	"github.com/nyashahama/gift-genius-backend/internal/scoring"
	"github.com/nyashahama/gift-genius-backend/internal/uniques"
)

// Unique pick tiers, in the order they are tried.
const (
	TierSemantic       = "semantic"
	TierDefaultUnique  = "default_unique"
	TierPathAHeuristic = "path_a_heuristic"
	TierReuseSafeBet   = "reuse_safe_bet"
	TierNone           = "none"
)

// UniquePicker draws from the curated default-unique pool. *uniques.Picker
// implements it.
type UniquePicker interface {
	Pick(ctx context.Context, profile gift.Profile, exclude ...string) (uniques.Pick, bool)
}

// Selector turns the safe pools into the three picks.
type Selector struct {
	scorer  *scoring.Scorer
	uniques UniquePicker
	logger  *slog.Logger
	metrics *metrics.Collectors
}

// NewSelector returns a Selector. up may be nil, which skips the curated
// pool tier.
func NewSelector(s *scoring.Scorer, up UniquePicker, logger *slog.Logger, m *metrics.Collectors) *Selector {
	return &Selector{scorer: s, uniques: up, logger: logger, metrics: m}
}

// Pools is the selector input: the safety-passed Path A and Path B pools and
// the similarity of each Path B product.
type Pools struct {
	PathA        []gift.Product
	PathB        []gift.Product
	Similarities map[string]float64
}

// Select fills all three picks. pools.PathA must be non-empty.
func (s *Selector) Select(ctx context.Context, pools Pools, profile gift.Profile) *gift.Picks {
	best := s.BestMatch(pools.PathA, profile.Loves)
	safe := s.SafeBet(pools.PathA, best, profile.Occasion)
	unique, tier := s.Unique(ctx, pools, profile, best, safe)

	s.metrics.UniqueTierUsed(tier)
	s.logger.Debug("recommend: picks selected",
		"best_match", best.Product.ID,
		"safe_bet", safe.Product.ID,
		"unique_tier", tier,
	)
	return &gift.Picks{BestMatch: best, SafeBet: safe, Unique: unique}
}

// BestMatch scores every product and keeps the first maximum.
func (s *Selector) BestMatch(pool []gift.Product, loves []string) gift.Recommendation {
	recs := make([]gift.Recommendation, len(pool))
	for i, p := range pool {
		recs[i] = s.scorer.BestMatch(p, loves)
	}
	best, _ := scoring.Top(recs)
	return best
}

// SafeBet picks the most popular remaining product, preferring ones tagged
// for the occasion. With nothing left it reuses the best match.
func (s *Selector) SafeBet(pool []gift.Product, best gift.Recommendation, occasion string) gift.Recommendation {
	remaining := gift.Without(pool, best.Product.ID)
	if len(remaining) == 0 {
		out := best.As(gift.CategorySafeBet)
		out.Breakdown = append(out.Breakdown, gift.ScoreLine{
			Kind:   gift.KindReused,
			Detail: "Reused best match: no other safe product available",
		})
		return out
	}
	if occasion != "" {
		remaining = FilterByOccasion(remaining, occasion)
	}

	var pick *gift.Product
	for i := range remaining {
		p := &remaining[i]
		if p.PopularityRank == nil {
			continue
		}
		if pick == nil || *p.PopularityRank < *pick.PopularityRank {
			pick = p
		}
	}
	if pick == nil {
		pick = &remaining[0]
	}
	return s.scorer.SafeBet(*pick)
}

// FilterByOccasion keeps the products tagged for occasion. When none are, the
// input is returned unchanged.
func FilterByOccasion(products []gift.Product, occasion string) []gift.Product {
	occ := strings.ToLower(strings.TrimSpace(occasion))
	if occ == "" {
		return products
	}
	terms := []string{occ, occ + " gifts"}

	matched := make([]gift.Product, 0, len(products))
	for _, p := range products {
		if taggedFor(p, terms) {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return products
	}
	return matched
}

func taggedFor(p gift.Product, terms []string) bool {
	for _, tag := range p.Occasions {
		tag = strings.ToLower(tag)
		for _, t := range terms {
			if strings.Contains(tag, t) {
				return true
			}
		}
	}
	return false
}

// ─── UNIQUE TIERS ─────────────────────────────────────────────────────────────

// attempt is one unique-pick tier. ok is false when the tier has nothing.
type attempt struct {
	tier string
	try  func(ctx context.Context) (rec gift.Recommendation, ok bool)
}

// Unique tries each tier in order and returns the first pick with the tier
// that produced it. Tiers never return the best match or the safe bet; only
// the final reuse tier repeats a product. It returns nil and TierNone only if
// every tier is empty.
func (s *Selector) Unique(ctx context.Context, pools Pools, profile gift.Profile, best, safe gift.Recommendation) (*gift.Recommendation, string) {
	picked := []string{best.Product.ID, safe.Product.ID}
	attempts := []attempt{
		{TierSemantic, func(context.Context) (gift.Recommendation, bool) {
			return s.semanticUnique(pools, picked)
		}},
		{TierDefaultUnique, func(ctx context.Context) (gift.Recommendation, bool) {
			return s.curatedUnique(ctx, profile, picked)
		}},
		{TierPathAHeuristic, func(context.Context) (gift.Recommendation, bool) {
			return s.heuristicUnique(pools, profile, best, safe)
		}},
		{TierReuseSafeBet, func(context.Context) (gift.Recommendation, bool) {
			out := safe.As(gift.CategoryUnique)
			out.Breakdown = append(out.Breakdown, gift.ScoreLine{
				Kind:   gift.KindReused,
				Detail: "Reused safe bet: no further distinct product available",
			})
			return out, true
		}},
	}

	for _, a := range attempts {
		if rec, ok := a.try(ctx); ok {
			return &rec, a.tier
		}
		s.logger.Debug("recommend: unique tier empty", "tier", a.tier)
	}
	return nil, TierNone
}

// semanticUnique picks the Path B product with the highest similarity,
// skipping products already picked. The first maximum wins.
func (s *Selector) semanticUnique(pools Pools, picked []string) (gift.Recommendation, bool) {
	var (
		pick  gift.Product
		best  float64
		found bool
	)
	for _, p := range pools.PathB {
		if slices.Contains(picked, p.ID) {
			continue
		}
		sim, ok := pools.Similarities[p.ID]
		if !ok {
			continue
		}
		if !found || sim > best {
			pick, best, found = p, sim, true
		}
	}
	if !found {
		return gift.Recommendation{}, false
	}
	return s.scorer.Semantic(pick, best), true
}

func (s *Selector) curatedUnique(ctx context.Context, profile gift.Profile, picked []string) (gift.Recommendation, bool) {
	if s.uniques == nil {
		return gift.Recommendation{}, false
	}
	pick, ok := s.uniques.Pick(ctx, profile, picked...)
	if !ok || slices.Contains(picked, pick.Product.ID) {
		return gift.Recommendation{}, false
	}
	return s.scorer.Curated(pick.Product, pick.Similarity, pick.Semantic), true
}

// heuristicUnique scores the Path A products not already picked with the
// uniqueness heuristic. Prices are compared against both safe pools.
func (s *Selector) heuristicUnique(pools Pools, profile gift.Profile, best, safe gift.Recommendation) (gift.Recommendation, bool) {
	remaining := gift.Without(pools.PathA, best.Product.ID, safe.Product.ID)
	if len(remaining) == 0 {
		return gift.Recommendation{}, false
	}

	combined := make([]gift.Product, 0, len(pools.PathA)+len(pools.PathB))
	combined = append(combined, pools.PathA...)
	combined = append(combined, pools.PathB...)

	recs := make([]gift.Recommendation, len(remaining))
	for i, p := range remaining {
		rec := s.scorer.Uniqueness(p, profile.Description, combined)
		rec.Breakdown = append(rec.Breakdown, gift.ScoreLine{
			Kind:   gift.KindFallback,
			Detail: "Fallback: no description for semantic match; selected from remaining options",
		})
		recs[i] = rec
	}
	return scoring.Top(recs)
}
