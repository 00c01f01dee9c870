// Package scoring implements the gift scoring heuristics: best match, safe bet,
// semantic unique, and the keyword-based uniqueness fallback. It is
// dependency-free apart from the gift domain types and can be tested without
// any network collaborator.
package scoring

import (
	"errors"
	"fmt"
)

// KeywordBonus awards Points when Term appears in a product's text.
type KeywordBonus struct {
	Term   string
	Points float64
}

// Rules holds every tunable weight. Keyword tables are ordered; breakdown
// lines follow table order.
type Rules struct {
	// Neutral is the starting score for best-match and uniqueness scoring,
	// and the score of an unranked safe bet.
	Neutral float64

	LovedTermBonus float64 // per distinct loved term found
	AllLovesBonus  float64 // once, when every loved term is found

	UniqueKeywords []KeywordBonus

	// Price premium relative to the mean price of the safe pools. Only the
	// higher tier applies.
	PremiumRatio      float64
	PremiumBonus      float64
	AboveAverageRatio float64
	AboveAverageBonus float64

	// LifestyleCues are searched in the recipient description; when one is
	// present and the product mentions any WellnessTerms, LifestyleBonus is
	// awarded once.
	LifestyleCues  []string
	WellnessTerms  []string
	LifestyleBonus float64
}

// DefaultRules returns the production weights.
func DefaultRules() Rules {
	return Rules{
		Neutral:        50,
		LovedTermBonus: 15,
		AllLovesBonus:  25,
		UniqueKeywords: []KeywordBonus{
			{"limited", 15},
			{"exclusive", 15},
			{"premium", 12},
			{"artisan", 12},
			{"handcrafted", 12},
			{"luxury", 10},
			{"gourmet", 10},
			{"special edition", 15},
			{"unique", 10},
			{"rare", 10},
		},
		PremiumRatio:      1.5,
		PremiumBonus:      20,
		AboveAverageRatio: 1.2,
		AboveAverageBonus: 10,
		LifestyleCues:     []string{"health", "fit", "run", "active", "workout"},
		WellnessTerms:     []string{"organic", "natural", "protein", "energy", "wellness", "recovery"},
		LifestyleBonus:    15,
	}
}

// Validate checks that the weights are usable. Call this once at startup,
// not on every request.
func (r Rules) Validate() error {
	var errs []error
	if r.Neutral < 0 || r.Neutral > 100 {
		errs = append(errs, fmt.Errorf("neutral=%v out of range [0,100]", r.Neutral))
	}
	if r.PremiumRatio <= r.AboveAverageRatio {
		errs = append(errs, fmt.Errorf("premium ratio %v must exceed above-average ratio %v",
			r.PremiumRatio, r.AboveAverageRatio))
	}
	if r.AboveAverageRatio <= 0 {
		errs = append(errs, fmt.Errorf("above-average ratio must be > 0, got %v", r.AboveAverageRatio))
	}
	for i, k := range r.UniqueKeywords {
		if k.Term == "" {
			errs = append(errs, fmt.Errorf("unique_keywords[%d]: empty term", i))
		}
		if k.Points < 0 {
			errs = append(errs, fmt.Errorf("unique_keywords[%d] %q: negative points", i, k.Term))
		}
	}
	if len(r.LifestyleCues) > 0 && len(r.WellnessTerms) == 0 {
		errs = append(errs, errors.New("lifestyle cues set without wellness terms"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scoring rules: %w", err)
	}
	return nil
}
