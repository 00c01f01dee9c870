package scoring

import (
	"fmt"
	"strings"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
)

// Scorer applies a Rules table. It holds no mutable state and is safe for
// concurrent use.
type Scorer struct {
	rules Rules
}

// New validates r and returns a Scorer.
func New(r Rules) (*Scorer, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{rules: r}, nil
}

// Default returns a Scorer using DefaultRules.
func Default() *Scorer {
	return &Scorer{rules: DefaultRules()}
}

// ─── CORE FUNCTIONS ───────────────────────────────────────────────────────────

// Clamp constrains a score to [0, 100].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// BestMatch scores p against the recipient's loved terms: Neutral, plus
// LovedTermBonus per distinct term found, plus AllLovesBonus when every term
// is found. A share line is appended when at least one term matched.
func (s *Scorer) BestMatch(p gift.Product, loves []string) gift.Recommendation {
	score := s.rules.Neutral
	var lines []gift.ScoreLine

	terms := distinctFold(loves)
	if len(terms) > 0 {
		text := p.Text()
		matched := 0
		for _, term := range terms {
			if !gift.ContainsFold(text, term) {
				continue
			}
			matched++
			score += s.rules.LovedTermBonus
			lines = append(lines, gift.ScoreLine{
				Kind:   gift.KindLovedTerm,
				Detail: fmt.Sprintf("Contains %s (loved)", term),
				Delta:  s.rules.LovedTermBonus,
			})
		}

		if matched == len(terms) {
			score += s.rules.AllLovesBonus
			lines = append(lines, gift.ScoreLine{
				Kind:   gift.KindAllLoves,
				Detail: "Matches ALL preferences!",
				Delta:  s.rules.AllLovesBonus,
			})
		}

		if matched > 0 {
			pct := float64(matched) / float64(len(terms)) * 100
			lines = append(lines, gift.ScoreLine{
				Kind:   gift.KindMatchShare,
				Detail: fmt.Sprintf("Matches %.0f%% of preferences", pct),
			})
		}
	}

	return gift.Recommendation{
		Product:   p,
		Score:     Clamp(score),
		Category:  gift.CategoryBestMatch,
		Breakdown: lines,
	}
}

// SafeBet scores p by popularity: 100 - rank floored at 0, or Neutral when
// the product is unranked.
func (s *Scorer) SafeBet(p gift.Product) gift.Recommendation {
	if p.PopularityRank == nil {
		return gift.Recommendation{
			Product:  p,
			Score:    s.rules.Neutral,
			Category: gift.CategorySafeBet,
			Breakdown: []gift.ScoreLine{{
				Kind:   gift.KindUnranked,
				Detail: "Selected from available options (no popularity ranking)",
			}},
		}
	}
	rank := *p.PopularityRank
	return gift.Recommendation{
		Product:  p,
		Score:    Clamp(float64(100 - rank)),
		Category: gift.CategorySafeBet,
		Breakdown: []gift.ScoreLine{{
			Kind:   gift.KindPopularity,
			Detail: fmt.Sprintf("Most popular choice (popularity rank #%d)", rank),
		}},
	}
}

// Semantic scores a unique pick by its embedding similarity to the
// recipient description.
func (s *Scorer) Semantic(p gift.Product, similarity float64) gift.Recommendation {
	return gift.Recommendation{
		Product:  p,
		Score:    Clamp(similarity * 100),
		Category: gift.CategoryUnique,
		Breakdown: []gift.ScoreLine{
			{Kind: gift.KindSimilarity, Detail: fmt.Sprintf("Semantic similarity: %.2f", similarity)},
			{Kind: gift.KindLifestyle, Detail: "Matches recipient's lifestyle and personality"},
		},
	}
}

// Curated scores a pick from the curated unique pool: by similarity when it
// was ranked semantically, Neutral when it was drawn at random.
func (s *Scorer) Curated(p gift.Product, similarity float64, ranked bool) gift.Recommendation {
	rec := gift.Recommendation{Product: p, Score: s.rules.Neutral, Category: gift.CategoryUnique}
	if ranked {
		rec = s.Semantic(p, similarity)
	}
	rec.Breakdown = append(rec.Breakdown, gift.ScoreLine{
		Kind:   gift.KindCurated,
		Detail: "Selected from curated unique collection",
	})
	return rec
}

// Uniqueness is the keyword heuristic used when no semantic pick exists.
// pool is the combined safe pool used for the mean price; description is
// the recipient's free-text description.
func (s *Scorer) Uniqueness(p gift.Product, description string, pool []gift.Product) gift.Recommendation {
	score := s.rules.Neutral
	var lines []gift.ScoreLine
	text := p.Text()

	for _, k := range s.rules.UniqueKeywords {
		if !strings.Contains(text, k.Term) {
			continue
		}
		score += k.Points
		lines = append(lines, gift.ScoreLine{
			Kind:   gift.KindKeyword,
			Detail: fmt.Sprintf("Described as '%s'", k.Term),
			Delta:  k.Points,
		})
	}

	if len(pool) > 0 {
		mean := gift.MeanPrice(pool)
		switch {
		case p.Price > mean*s.rules.PremiumRatio:
			score += s.rules.PremiumBonus
			lines = append(lines, gift.ScoreLine{
				Kind:   gift.KindPricePremium,
				Detail: fmt.Sprintf("Premium priced (%gx average)", s.rules.PremiumRatio),
				Delta:  s.rules.PremiumBonus,
			})
		case p.Price > mean*s.rules.AboveAverageRatio:
			score += s.rules.AboveAverageBonus
			lines = append(lines, gift.ScoreLine{
				Kind:   gift.KindPricePremium,
				Detail: "Above average price",
				Delta:  s.rules.AboveAverageBonus,
			})
		}
	}

	if _, active := gift.FirstMention(description, s.rules.LifestyleCues); active {
		if _, ok := gift.FirstMention(text, s.rules.WellnessTerms); ok {
			score += s.rules.LifestyleBonus
			lines = append(lines, gift.ScoreLine{
				Kind:   gift.KindHealth,
				Detail: "Health-focused (matches lifestyle)",
				Delta:  s.rules.LifestyleBonus,
			})
		}
	}

	return gift.Recommendation{
		Product:   p,
		Score:     Clamp(score),
		Category:  gift.CategoryUnique,
		Breakdown: lines,
	}
}

// ─── AGGREGATE HELPERS ────────────────────────────────────────────────────────

// Top returns the highest-scoring recommendation. Ties go to the earliest
// element, so the result follows pool order. ok is false for an empty slice.
func Top(recs []gift.Recommendation) (best gift.Recommendation, ok bool) {
	for i, r := range recs {
		if i == 0 || r.Score > best.Score {
			best = r
		}
	}
	return best, len(recs) > 0
}

// distinctFold drops case-insensitive duplicates and blanks, keeping the
// first spelling of each term.
func distinctFold(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		k := strings.ToLower(t)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}
