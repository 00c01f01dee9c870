package safety

import (
	"context"
	"fmt"
	"strings"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
)

// KeywordValidator is the deterministic fallback: reject when a hated or
// allergen term is a substring of the product text, unless the text contains
// "free" anywhere. The negation guard is crude: "sugar-free nut
// brittle" passes a nut restriction and so does "free shipping".
type KeywordValidator struct{}

// Validate never returns an error.
func (KeywordValidator) Validate(_ context.Context, products []gift.Product, c Constraints, _ string) ([]Decision, error) {
	out := make([]Decision, 0, len(products))
	for _, p := range products {
		out = append(out, keywordDecision(p, c))
	}
	return out, nil
}

func keywordDecision(p gift.Product, c Constraints) Decision {
	d := Decision{ProductID: p.ID}
	text := p.Text()
	if strings.Contains(text, "free") {
		return d
	}
	if term, ok := gift.FirstMention(text, c.Hates); ok {
		d.Reject = true
		d.Reason = fmt.Sprintf("contains hated item %q", term)
		return d
	}
	if term, ok := gift.FirstMention(text, c.Allergies); ok {
		d.Reject = true
		d.Reason = fmt.Sprintf("contains allergen %q", term)
	}
	return d
}
