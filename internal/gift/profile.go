package gift

import "strings"

// MaxLoves is the number of loved items the wizard collects.
const MaxLoves = 3

// Profile is the recipient profile assembled by the gift wizard (or built
// from a saved persona). Call Normalize at the pipeline boundary; after that
// every list field is non-nil.
type Profile struct {
	RecipientName string   `json:"recipient_name,omitempty"`
	Occasion      string   `json:"occasion"`
	BudgetMin     *float64 `json:"budget_min,omitempty"`
	BudgetMax     *float64 `json:"budget_max,omitempty"`

	Loves     []string `json:"recipient_loves"`
	Hates     []string `json:"recipient_hates"`
	Allergies []string `json:"recipient_allergies"`
	Dietary   []string `json:"recipient_dietary"`

	// Description is free text used for semantic matching.
	Description string `json:"recipient_description,omitempty"`
}

// Normalize returns a copy with trimmed strings, empty list entries dropped,
// nil lists replaced by empty ones, and Loves capped at MaxLoves.
func (p Profile) Normalize() Profile {
	out := p
	out.RecipientName = strings.TrimSpace(p.RecipientName)
	out.Occasion = strings.TrimSpace(p.Occasion)
	out.Description = strings.TrimSpace(p.Description)
	out.Loves = cleanList(p.Loves)
	if len(out.Loves) > MaxLoves {
		out.Loves = out.Loves[:MaxLoves]
	}
	out.Hates = cleanList(p.Hates)
	out.Allergies = cleanList(p.Allergies)
	out.Dietary = cleanList(p.Dietary)
	return out
}

// NameOrThem returns the recipient name, or "them" when none was given.
func (p Profile) NameOrThem() string {
	if p.RecipientName == "" {
		return "them"
	}
	return p.RecipientName
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// FilterBudget drops products priced below min or above max. Both bounds are
// inclusive, applied independently, and ignored when nil. No tolerance buffer.
func FilterBudget(products []Product, min, max *float64) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if min != nil && p.Price < *min {
			continue
		}
		if max != nil && p.Price > *max {
			continue
		}
		out = append(out, p)
	}
	return out
}
