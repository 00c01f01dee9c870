package gift_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
)

func ptr(f float64) *float64 { return &f }

// ─── Profile.Normalize ────────────────────────────────────────────────────────

func TestNormalize_NilListsBecomeEmpty(t *testing.T) {
	p := gift.Profile{Occasion: " birthday "}.Normalize()

	if p.Occasion != "birthday" {
		t.Errorf("occasion not trimmed: %q", p.Occasion)
	}
	for name, l := range map[string][]string{
		"loves": p.Loves, "hates": p.Hates, "allergies": p.Allergies, "dietary": p.Dietary,
	} {
		if l == nil {
			t.Errorf("%s is nil after Normalize", name)
		}
	}
}

func TestNormalize_DropsBlankEntriesAndCapsLoves(t *testing.T) {
	p := gift.Profile{
		Loves: []string{" chocolate ", "", "tea", "  ", "wine", "cheese"},
		Hates: []string{"", "nuts"},
	}.Normalize()

	want := []string{"chocolate", "tea", "wine"}
	if fmt.Sprint(p.Loves) != fmt.Sprint(want) {
		t.Errorf("loves = %v, want %v", p.Loves, want)
	}
	if len(p.Hates) != 1 || p.Hates[0] != "nuts" {
		t.Errorf("hates = %v, want [nuts]", p.Hates)
	}
}

func TestNameOrThem(t *testing.T) {
	if got := (gift.Profile{}).NameOrThem(); got != "them" {
		t.Errorf("empty name: got %q", got)
	}
	if got := (gift.Profile{RecipientName: "Ana"}).NameOrThem(); got != "Ana" {
		t.Errorf("got %q", got)
	}
}

// ─── FilterBudget ─────────────────────────────────────────────────────────────

func TestFilterBudget(t *testing.T) {
	products := []gift.Product{
		{ID: "a", Price: 10},
		{ID: "b", Price: 25},
		{ID: "c", Price: 50},
		{ID: "d", Price: 50.01},
	}

	tests := []struct {
		name     string
		min, max *float64
		want     string
	}{
		{"no bounds", nil, nil, "[a b c d]"},
		{"max inclusive", nil, ptr(50), "[a b c]"},
		{"min inclusive", ptr(25), nil, "[b c d]"},
		{"both", ptr(20), ptr(50), "[b c]"},
		{"zero max is a bound", nil, ptr(0), "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gift.IDs(gift.FilterBudget(products, tt.min, tt.max))
			if fmt.Sprint(got) != tt.want {
				t.Errorf("got %v, want %s", got, tt.want)
			}
		})
	}
}

// ─── Text matching ────────────────────────────────────────────────────────────

func TestProductMentions(t *testing.T) {
	p := gift.Product{Name: "Dark CHOCOLATE Box", Description: "With sea salt"}

	if !p.Mentions("chocolate") {
		t.Error("expected case-insensitive match on name")
	}
	if !p.Mentions("Sea Salt") {
		t.Error("expected match on description")
	}
	if p.Mentions("") || p.Mentions("   ") {
		t.Error("blank term must never match")
	}
}

func TestFirstMention_ReturnsFirstInListOrder(t *testing.T) {
	term, ok := gift.FirstMention("almond and peanut brittle", []string{"cashew", "peanut", "almond"})
	if !ok || term != "peanut" {
		t.Errorf("got (%q, %v), want (peanut, true)", term, ok)
	}
}

func TestWithout(t *testing.T) {
	in := []gift.Product{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := gift.IDs(gift.Without(in, "b", "z"))
	if fmt.Sprint(got) != "[a c]" {
		t.Errorf("got %v", got)
	}
	if len(in) != 3 {
		t.Error("input mutated")
	}
}

func TestMeanPrice(t *testing.T) {
	if got := gift.MeanPrice(nil); got != 0 {
		t.Errorf("empty mean = %v", got)
	}
	got := gift.MeanPrice([]gift.Product{{Price: 10}, {Price: 30}})
	if got != 20 {
		t.Errorf("mean = %v, want 20", got)
	}
}

// ─── Recommendation ───────────────────────────────────────────────────────────

func TestScoreLineString(t *testing.T) {
	tests := []struct {
		line gift.ScoreLine
		want string
	}{
		{gift.ScoreLine{Detail: "Contains chocolate (loved)", Delta: 15}, "+15: Contains chocolate (loved)"},
		{gift.ScoreLine{Detail: "Matches 100% of preferences"}, "Matches 100% of preferences"},
		{gift.ScoreLine{Detail: "Slight penalty", Delta: -2.5}, "-2.5: Slight penalty"},
	}
	for _, tt := range tests {
		if got := tt.line.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestRecommendationAs_CopiesBreakdown(t *testing.T) {
	r := gift.Recommendation{
		Category:  gift.CategorySafeBet,
		Breakdown: []gift.ScoreLine{{Kind: gift.KindPopularity, Detail: "Rank #1"}},
	}
	u := r.As(gift.CategoryUnique)
	u.Breakdown = append(u.Breakdown, gift.ScoreLine{Kind: gift.KindReused})
	u.Breakdown[0].Detail = "changed"

	if r.Category != gift.CategorySafeBet {
		t.Error("original category changed")
	}
	if r.Breakdown[0].Detail != "Rank #1" || len(r.Breakdown) != 1 {
		t.Error("original breakdown mutated")
	}
	if !u.HasKind(gift.KindReused) {
		t.Error("copy missing appended line")
	}
}

func TestPicksAll(t *testing.T) {
	p := gift.Picks{}
	if len(p.All()) != 2 {
		t.Errorf("nil unique: got %d picks", len(p.All()))
	}
	p.Unique = &gift.Recommendation{}
	if len(p.All()) != 3 {
		t.Errorf("with unique: got %d picks", len(p.All()))
	}
}

func TestCategoryLabel(t *testing.T) {
	if gift.CategoryUnique.Label() != "Something Unique" {
		t.Errorf("got %q", gift.CategoryUnique.Label())
	}
}

// ─── Errors ───────────────────────────────────────────────────────────────────

func TestPipelineError_Unwraps(t *testing.T) {
	var err error = &gift.PipelineError{Err: gift.ErrInsufficientCandidates, Found: 3, Need: 5}
	wrapped := fmt.Errorf("recommend: %w", err)

	if !errors.Is(wrapped, gift.ErrInsufficientCandidates) {
		t.Error("errors.Is should find the sentinel")
	}
	var pe *gift.PipelineError
	if !errors.As(wrapped, &pe) || pe.Found != 3 {
		t.Errorf("errors.As failed or wrong count: %+v", pe)
	}
	if err.Error() != "insufficient candidates: found 3, need at least 5" {
		t.Errorf("message = %q", err.Error())
	}
}

// ─── Persona ──────────────────────────────────────────────────────────────────

func TestPersonaToProfile(t *testing.T) {
	p := gift.Persona{Name: "Sam", Loves: []string{"tea", ""}, Description: " runner "}
	prof := p.ToProfile("", nil, ptr(40))

	if prof.Occasion != gift.DefaultOccasion {
		t.Errorf("occasion = %q", prof.Occasion)
	}
	if prof.RecipientName != "Sam" || prof.Description != "runner" {
		t.Errorf("unexpected profile: %+v", prof)
	}
	if len(prof.Loves) != 1 || prof.Hates == nil {
		t.Errorf("profile not normalized: %+v", prof)
	}
	if prof.BudgetMax == nil || *prof.BudgetMax != 40 {
		t.Error("budget not carried")
	}
}
