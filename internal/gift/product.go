// Package gift holds the domain types shared by every stage of the
// recommendation pipeline: catalog products, the recipient profile collected
// by the gift wizard, and the three-pick result. It imports nothing from
// internal/ so every other package can depend on it.
package gift

import (
	"strings"
)

// Product is one catalog item. Products are immutable once fetched and live
// only for the duration of a single recommendation request.
type Product struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"` // HTML-sanitized, whitespace-normalized
	MetaDescription string  `json:"meta_description,omitempty"`
	Price           float64 `json:"price"`
	ImageURL        string  `json:"image_url,omitempty"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	Ingredients     string  `json:"ingredients,omitempty"`

	// PopularityRank is 1 for the most popular item of a catalog fetch.
	// Nil when the catalog did not rank the product.
	PopularityRank *int `json:"popularity_rank,omitempty"`

	// Occasions are lowercase tags attached by the catalog provider.
	Occasions []string `json:"occasions"`
}

// Text returns the lowercased "name description" string every matching rule
// runs against.
func (p Product) Text() string {
	return strings.ToLower(p.Name + " " + p.Description)
}

// Mentions reports whether the product text contains term as a
// case-insensitive substring.
func (p Product) Mentions(term string) bool {
	return ContainsFold(p.Text(), term)
}

// ContainsFold reports whether text contains term, ignoring case. An empty
// term never matches.
func ContainsFold(text, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), term)
}

// FirstMention returns the first term in terms that the text contains, and
// whether one was found.
func FirstMention(text string, terms []string) (string, bool) {
	for _, t := range terms {
		if ContainsFold(text, t) {
			return t, true
		}
	}
	return "", false
}

// Rank returns a pointer to r. Convenience for building products in the
// catalog client and in tests.
func Rank(r int) *int { return &r }

// IDs returns the product ids in order.
func IDs(products []Product) []string {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}

// Without returns a new slice holding every product whose id is not in ids.
func Without(products []Product, ids ...string) []Product {
	skip := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if _, ok := skip[p.ID]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

// MeanPrice returns the arithmetic mean price of products, or 0 for an empty
// slice.
func MeanPrice(products []Product) float64 {
	if len(products) == 0 {
		return 0
	}
	var total float64
	for _, p := range products {
		total += p.Price
	}
	return total / float64(len(products))
}
