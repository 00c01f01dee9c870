package gift

import (
	"fmt"
)

// Category names which of the three picks a Recommendation fills.
type Category string

const (
	CategoryBestMatch Category = "best_match"
	CategorySafeBet   Category = "safe_bet"
	CategoryUnique    Category = "unique"
)

// Label is the human-facing name used in reminder emails.
func (c Category) Label() string {
	switch c {
	case CategoryBestMatch:
		return "Best Match"
	case CategorySafeBet:
		return "Safe Bet"
	case CategoryUnique:
		return "Something Unique"
	default:
		return string(c)
	}
}

// ScoreKind classifies a ScoreLine so callers can assert on structured
// bonuses instead of matching strings.
type ScoreKind string

const (
	KindLovedTerm    ScoreKind = "loved_term"
	KindAllLoves     ScoreKind = "all_loves"
	KindMatchShare   ScoreKind = "match_share"
	KindPopularity   ScoreKind = "popularity"
	KindUnranked     ScoreKind = "unranked"
	KindSimilarity   ScoreKind = "similarity"
	KindLifestyle    ScoreKind = "lifestyle"
	KindKeyword      ScoreKind = "keyword"
	KindPricePremium ScoreKind = "price_premium"
	KindHealth       ScoreKind = "health"
	KindCurated      ScoreKind = "curated"
	KindFallback     ScoreKind = "fallback"
	KindReused       ScoreKind = "reused"
)

// ScoreLine is one entry of a score breakdown. Delta is zero for purely
// descriptive lines.
type ScoreLine struct {
	Kind   ScoreKind
	Detail string
	Delta  float64
}

// String renders the line the way explanations and API responses show it,
// e.g. "+15: Contains chocolate (loved)".
func (l ScoreLine) String() string {
	if l.Delta == 0 {
		return l.Detail
	}
	return fmt.Sprintf("%+g: %s", l.Delta, l.Detail)
}

// Recommendation wraps a product with its score (0–100), category, ordered
// breakdown, and the explanation filled in by the last pipeline stage.
type Recommendation struct {
	Product     Product
	Score       float64
	Category    Category
	Breakdown   []ScoreLine
	Explanation string
}

// BreakdownText renders the breakdown lines to strings.
func (r Recommendation) BreakdownText() []string {
	out := make([]string, len(r.Breakdown))
	for i, l := range r.Breakdown {
		out[i] = l.String()
	}
	return out
}

// HasKind reports whether the breakdown contains a line of kind k.
func (r Recommendation) HasKind(k ScoreKind) bool {
	for _, l := range r.Breakdown {
		if l.Kind == k {
			return true
		}
	}
	return false
}

// As returns a copy of r recategorized as c, with its own breakdown slice.
func (r Recommendation) As(c Category) Recommendation {
	out := r
	out.Category = c
	out.Breakdown = append([]ScoreLine(nil), r.Breakdown...)
	return out
}

// Picks is the pipeline's sole output. BestMatch and SafeBet are always set
// on success; Unique is nil only when no product could fill it.
type Picks struct {
	BestMatch Recommendation
	SafeBet   Recommendation
	Unique    *Recommendation
}

// All returns the picks in presentation order, skipping a nil Unique.
func (p *Picks) All() []*Recommendation {
	out := []*Recommendation{&p.BestMatch, &p.SafeBet}
	if p.Unique != nil {
		out = append(out, p.Unique)
	}
	return out
}
