package recommend_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nyashahama/gift-genius-backend/internal/catalog"
	"github.com/nyashahama/gift-genius-backend/internal/explain"
	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/metrics"
	"github.com/nyashahama/gift-genius-backend/internal/recommend"
	"github.com/nyashahama/gift-genius-backend/internal/safety"
	"github.com/nyashahama/gift-genius-backend/internal/scoring"
	"github.com/nyashahama/gift-genius-backend/internal/uniques"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type marker struct {
	word string
	sim  float64
}

// simEmbedder places "runner" at (1, 0) and every other text at an angle
// whose cosine to it is the sim of the first marker the text contains.
type simEmbedder struct {
	markers []marker
	err     error
	calls   int
}

func (e *simEmbedder) Model() string { return "test" }

func (e *simEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	text = strings.ToLower(text)
	if strings.Contains(text, "runner") {
		return []float64{1, 0}, nil
	}
	for _, m := range e.markers {
		if strings.Contains(text, m.word) {
			return []float64{m.sim, math.Sqrt(1 - m.sim*m.sim)}, nil
		}
	}
	return []float64{0, 1}, nil
}

type stubUniques struct {
	pick     uniques.Pick
	ok       bool
	calls    int
	excluded []string
}

func (s *stubUniques) Pick(_ context.Context, _ gift.Profile, exclude ...string) (uniques.Pick, bool) {
	s.calls++
	s.excluded = exclude
	return s.pick, s.ok
}

type countingCatalog struct {
	products []gift.Product
	keywords []string
}

func (c *countingCatalog) Search(_ context.Context, kw string) []gift.Product {
	c.keywords = append(c.keywords, kw)
	return c.products
}

func newPipeline(cat catalog.Provider, emb *simEmbedder, up recommend.UniquePicker, m *metrics.Collectors) *recommend.Pipeline {
	if emb == nil {
		emb = &simEmbedder{}
	}
	return recommend.New(recommend.Deps{
		Catalog:   cat,
		Embedder:  emb,
		Screener:  safety.NewScreener(safety.KeywordValidator{}, discardLogger()),
		Uniques:   up,
		Explainer: explain.New(nil, discardLogger(), m),
		Scorer:    scoring.Default(),
		Logger:    discardLogger(),
		Metrics:   m,
	})
}

// birthdayCatalog has six products, exactly two mentioning chocolate.
func birthdayCatalog() []gift.Product {
	return []gift.Product{
		{ID: "1", Name: "Fruit Bouquet", Description: "Fresh pineapple daisies", Price: 40, PopularityRank: gift.Rank(1), Occasions: []string{"birthday"}},
		{ID: "2", Name: "Chocolate Dipped Strawberries", Description: "Berries in chocolate", Price: 55, PopularityRank: gift.Rank(2), Occasions: []string{"birthday gifts"}},
		{ID: "3", Name: "Citrus Platter", Description: "Oranges and grapefruit", Price: 35, PopularityRank: gift.Rank(3)},
		{ID: "4", Name: "Dark Chocolate Box", Description: "Assorted truffles", Price: 30, PopularityRank: gift.Rank(4), Occasions: []string{"anniversary"}},
		{ID: "5", Name: "Melon Bowl", Description: "Cut melon", Price: 25, PopularityRank: gift.Rank(5)},
		{ID: "6", Name: "Mango Tray", Description: "Sliced mango", Price: 45, PopularityRank: gift.Rank(6)},
	}
}

// ─── PIPELINE ─────────────────────────────────────────────────────────────────

func TestRecommend_EndToEndBirthdayChocolate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	cat := &countingCatalog{products: birthdayCatalog()}
	up := &stubUniques{ok: true, pick: uniques.Pick{Product: gift.Product{ID: "u1", Name: "Succulent Trio", Price: 30}}}

	picks, err := newPipeline(cat, nil, up, m).Recommend(context.Background(), gift.Profile{
		Occasion: "birthday",
		Loves:    []string{"chocolate"},
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if cat.keywords[0] != "birthday chocolate" {
		t.Errorf("keyword = %q", cat.keywords[0])
	}
	// Both chocolate products score 90; the first in pool order wins.
	if picks.BestMatch.Product.ID != "2" || picks.BestMatch.Score != 90 {
		t.Errorf("best match = %s (%v)", picks.BestMatch.Product.ID, picks.BestMatch.Score)
	}
	if !picks.BestMatch.HasKind(gift.KindAllLoves) {
		t.Error("best match missing all-loves bonus")
	}
	// Occasion filtering would empty the remainder, so product 4 is kept.
	if picks.SafeBet.Product.ID != "4" || picks.SafeBet.Score != 96 {
		t.Errorf("safe bet = %s (%v)", picks.SafeBet.Product.ID, picks.SafeBet.Score)
	}
	if picks.Unique == nil || picks.Unique.Product.ID != "u1" || !picks.Unique.HasKind(gift.KindCurated) {
		t.Fatalf("unique = %+v", picks.Unique)
	}
	for _, r := range picks.All() {
		if r.Explanation == "" {
			t.Errorf("%s has no explanation", r.Category)
		}
	}
	if n := testutil.ToFloat64(m.PipelineRuns.WithLabelValues(metrics.OutcomeSuccess)); n != 1 {
		t.Errorf("success runs = %v", n)
	}
	if n := testutil.ToFloat64(m.UniqueTier.WithLabelValues(recommend.TierDefaultUnique)); n != 1 {
		t.Errorf("default unique tier = %v", n)
	}
}

func TestRecommend_InsufficientCandidates(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	emb := &simEmbedder{}
	cat := &countingCatalog{products: birthdayCatalog()[:4]}

	_, err := newPipeline(cat, emb, nil, m).Recommend(context.Background(), gift.Profile{
		Occasion:    "birthday",
		Description: "runner",
	})

	if !errors.Is(err, gift.ErrInsufficientCandidates) {
		t.Fatalf("err = %v", err)
	}
	var pe *gift.PipelineError
	if !errors.As(err, &pe) || pe.Found != 4 || pe.Need != 5 {
		t.Errorf("pipeline error = %+v", pe)
	}
	if emb.calls != 0 {
		t.Error("no filtering should run before the candidate check")
	}
	if n := testutil.ToFloat64(m.PipelineRuns.WithLabelValues(metrics.OutcomeInsufficientCandidates)); n != 1 {
		t.Errorf("outcome counter = %v", n)
	}
}

func TestRecommend_CandidateCountCheckedBeforeBudget(t *testing.T) {
	cat := &countingCatalog{products: birthdayCatalog()}
	max := 10.0

	_, err := newPipeline(cat, nil, nil, nil).Recommend(context.Background(), gift.Profile{BudgetMax: &max})

	if !errors.Is(err, gift.ErrInsufficientSafeCandidates) {
		t.Errorf("err = %v, want insufficient safe candidates", err)
	}
}

func TestRecommend_InsufficientSafeCandidates(t *testing.T) {
	cat := &countingCatalog{products: birthdayCatalog()}

	_, err := newPipeline(cat, nil, nil, nil).Recommend(context.Background(), gift.Profile{
		Loves: []string{"chocolate"},
		Hates: []string{"truffles"},
	})

	var pe *gift.PipelineError
	if !errors.As(err, &pe) || !errors.Is(err, gift.ErrInsufficientSafeCandidates) || pe.Found != 1 {
		t.Errorf("err = %v", err)
	}
}

func TestRecommend_SemanticUnique(t *testing.T) {
	products := birthdayCatalog()
	products[2].Name = "Mango Yoga Mat"
	emb := &simEmbedder{markers: []marker{{"yoga", 0.95}, {"melon", 0.9}, {"citrus", 0.85}}}
	up := &stubUniques{}

	picks, err := newPipeline(&countingCatalog{products: products}, emb, up, nil).Recommend(context.Background(), gift.Profile{
		Loves:       []string{"chocolate", "mango"},
		Description: "runner",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Mango Yoga Mat mentions a loved term so it is Path A only; melon wins.
	if picks.Unique == nil || picks.Unique.Product.ID != "5" {
		t.Fatalf("unique = %+v", picks.Unique)
	}
	if math.Abs(picks.Unique.Score-90) > 1e-9 || !picks.Unique.HasKind(gift.KindSimilarity) {
		t.Errorf("unique = %+v", picks.Unique)
	}
	if up.calls != 0 {
		t.Error("curated pool should not be consulted when Path B has a pick")
	}
}

func TestRecommend_UniqueDiffersFromOtherPicks(t *testing.T) {
	// No loves: Path A is every candidate, so the top Path B product is also
	// the best match.
	emb := &simEmbedder{markers: []marker{{"bouquet", 0.95}}}

	picks, err := newPipeline(&countingCatalog{products: birthdayCatalog()}, emb, &stubUniques{}, nil).Recommend(context.Background(), gift.Profile{
		Description: "runner",
	})
	if err != nil {
		t.Fatal(err)
	}
	if picks.BestMatch.Product.ID != "1" || picks.SafeBet.Product.ID != "2" {
		t.Fatalf("best = %s, safe = %s", picks.BestMatch.Product.ID, picks.SafeBet.Product.ID)
	}
	if picks.Unique == nil {
		t.Fatal("unique is nil")
	}
	if id := picks.Unique.Product.ID; id == "1" || id == "2" {
		t.Errorf("unique = %s repeats another pick", id)
	}
}

func TestRecommend_EmbeddingFailureIsFatal(t *testing.T) {
	emb := &simEmbedder{err: errors.New("quota")}
	_, err := newPipeline(&countingCatalog{products: birthdayCatalog()}, emb, nil, nil).Recommend(context.Background(), gift.Profile{Description: "runner"})

	if err == nil {
		t.Fatal("expected error")
	}
	var pe *gift.PipelineError
	if errors.As(err, &pe) {
		t.Errorf("embedding failure should not be a PipelineError: %v", err)
	}
}

func TestRecommend_Idempotent(t *testing.T) {
	p := newPipeline(&countingCatalog{products: birthdayCatalog()}, nil, nil, nil)
	profile := gift.Profile{Occasion: "birthday", Loves: []string{"chocolate"}}

	a, err := p.Recommend(context.Background(), profile)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Recommend(context.Background(), profile)
	if err != nil {
		t.Fatal(err)
	}
	if a.BestMatch.Product.ID != b.BestMatch.Product.ID || a.SafeBet.Product.ID != b.SafeBet.Product.ID {
		t.Error("best match and safe bet should be deterministic")
	}
}

// ─── PATHS ────────────────────────────────────────────────────────────────────

func TestSearchKeyword(t *testing.T) {
	tests := []struct {
		profile gift.Profile
		want    string
	}{
		{gift.Profile{Occasion: "Birthday", Loves: []string{"tea", "figs"}}, "Birthday tea, figs"},
		{gift.Profile{Occasion: "Birthday"}, "Birthday"},
		{gift.Profile{Loves: []string{"tea"}}, "tea"},
	}
	for _, tt := range tests {
		if got := recommend.SearchKeyword(tt.profile); got != tt.want {
			t.Errorf("SearchKeyword(%+v) = %q, want %q", tt.profile, got, tt.want)
		}
	}
}

func TestExplicitMatches(t *testing.T) {
	products := birthdayCatalog()

	got := recommend.ExplicitMatches(products, []string{"CHOCOLATE"})
	if s := strings.Join(gift.IDs(got), ","); s != "2,4" {
		t.Errorf("matches = %s", s)
	}
	if all := recommend.ExplicitMatches(products, nil); len(all) != len(products) {
		t.Errorf("no loves kept %d of %d", len(all), len(products))
	}
}

func TestSemanticMatches_ThresholdSortAndCap(t *testing.T) {
	products := []gift.Product{
		{ID: "a", Name: "Lamp"},
		{ID: "b", Name: "Socks"},
		{ID: "c", Name: "Yoga Block"},
		{ID: "d", Name: "Tea Tin"},
		{ID: "e", Name: "Candle"},
		{ID: "f", Name: "Chocolate Yoga Bar"},
	}
	emb := &simEmbedder{markers: []marker{
		{"lamp", 0.79}, {"socks", 0.9}, {"yoga", 0.95}, {"tea", 0.85}, {"candle", 0.86},
	}}

	got, sims, err := recommend.SemanticMatches(context.Background(), emb, products, gift.Profile{
		Description: "runner",
		Loves:       []string{"chocolate"},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Lamp falls below the threshold; the chocolate product is excluded.
	if s := strings.Join(gift.IDs(got), ","); s != "c,b,e" {
		t.Errorf("path b = %s, want c,b,e", s)
	}
	if len(sims) != 3 || math.Abs(sims["c"]-0.95) > 1e-9 {
		t.Errorf("sims = %v", sims)
	}
}

func TestSemanticMatches_NoDescription(t *testing.T) {
	emb := &simEmbedder{}
	got, sims, err := recommend.SemanticMatches(context.Background(), emb, birthdayCatalog(), gift.Profile{})
	if err != nil || len(got) != 0 || len(sims) != 0 || emb.calls != 0 {
		t.Errorf("got %v %v %v calls=%d", got, sims, err, emb.calls)
	}
}

// ─── SELECTOR ─────────────────────────────────────────────────────────────────

func TestFilterByOccasion(t *testing.T) {
	products := birthdayCatalog()

	got := recommend.FilterByOccasion(products, " Birthday ")
	if s := strings.Join(gift.IDs(got), ","); s != "1,2" {
		t.Errorf("birthday = %s", s)
	}
	if got := recommend.FilterByOccasion(products, "graduation"); len(got) != len(products) {
		t.Errorf("no match should keep all, got %d", len(got))
	}
}

func newSelector(up recommend.UniquePicker) *recommend.Selector {
	return recommend.NewSelector(scoring.Default(), up, discardLogger(), nil)
}

func TestSafeBet(t *testing.T) {
	s := newSelector(nil)
	products := birthdayCatalog()
	best := scoring.Default().BestMatch(products[0], nil)

	t.Run("prefers occasion-tagged over more popular", func(t *testing.T) {
		got := s.SafeBet(products, best, "birthday")
		if got.Product.ID != "2" {
			t.Errorf("safe bet = %s", got.Product.ID)
		}
	})

	t.Run("unranked takes first with neutral score", func(t *testing.T) {
		pool := []gift.Product{products[0], {ID: "x"}, {ID: "y"}}
		got := s.SafeBet(pool, best, "")
		if got.Product.ID != "x" || got.Score != 50 || !got.HasKind(gift.KindUnranked) {
			t.Errorf("safe bet = %+v", got)
		}
	})

	t.Run("reuses best match when nothing remains", func(t *testing.T) {
		got := s.SafeBet(products[:1], best, "birthday")
		if got.Product.ID != "1" || got.Category != gift.CategorySafeBet || !got.HasKind(gift.KindReused) {
			t.Errorf("safe bet = %+v", got)
		}
		if best.HasKind(gift.KindReused) {
			t.Error("reuse must not modify the best match breakdown")
		}
	})
}

func TestUnique_Tiers(t *testing.T) {
	products := birthdayCatalog()
	sc := scoring.Default()

	tests := []struct {
		name     string
		pools    recommend.Pools
		up       recommend.UniquePicker
		wantTier string
		wantID   string
	}{
		{
			name:     "semantic",
			pools:    recommend.Pools{PathA: products[:3], PathB: products[4:6], Similarities: map[string]float64{"5": 0.81, "6": 0.9}},
			up:       &stubUniques{ok: true, pick: uniques.Pick{Product: gift.Product{ID: "u"}}},
			wantTier: recommend.TierSemantic,
			wantID:   "6",
		},
		{
			name:     "semantic skips picked products",
			pools:    recommend.Pools{PathA: products[:3], PathB: []gift.Product{products[0], products[4]}, Similarities: map[string]float64{"1": 0.95, "5": 0.85}},
			up:       &stubUniques{ok: true, pick: uniques.Pick{Product: gift.Product{ID: "u"}}},
			wantTier: recommend.TierSemantic,
			wantID:   "5",
		},
		{
			name:     "semantic with only picked products",
			pools:    recommend.Pools{PathA: products[:3], PathB: products[:2], Similarities: map[string]float64{"1": 0.95, "2": 0.9}},
			up:       &stubUniques{ok: true, pick: uniques.Pick{Product: gift.Product{ID: "u"}}},
			wantTier: recommend.TierDefaultUnique,
			wantID:   "u",
		},
		{
			name:     "curated pick already picked",
			pools:    recommend.Pools{PathA: products[:3]},
			up:       &stubUniques{ok: true, pick: uniques.Pick{Product: products[1]}},
			wantTier: recommend.TierPathAHeuristic,
			wantID:   "3",
		},
		{
			name:     "default unique",
			pools:    recommend.Pools{PathA: products[:3]},
			up:       &stubUniques{ok: true, pick: uniques.Pick{Product: gift.Product{ID: "u"}}},
			wantTier: recommend.TierDefaultUnique,
			wantID:   "u",
		},
		{
			name:     "path a heuristic",
			pools:    recommend.Pools{PathA: products[:3]},
			up:       &stubUniques{},
			wantTier: recommend.TierPathAHeuristic,
			wantID:   "3",
		},
		{
			name:     "reuse safe bet",
			pools:    recommend.Pools{PathA: products[:2]},
			wantTier: recommend.TierReuseSafeBet,
			wantID:   "2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSelector(tt.up)
			best := sc.BestMatch(products[0], nil)
			safe := sc.SafeBet(products[1])

			got, tier := s.Unique(context.Background(), tt.pools, gift.Profile{}, best, safe)
			if tier != tt.wantTier {
				t.Errorf("tier = %s, want %s", tier, tt.wantTier)
			}
			if got == nil || got.Product.ID != tt.wantID || got.Category != gift.CategoryUnique {
				t.Errorf("unique = %+v, want %s", got, tt.wantID)
			}
			if tt.wantTier == recommend.TierPathAHeuristic && !got.HasKind(gift.KindFallback) {
				t.Error("heuristic pick should be annotated as a fallback")
			}
			if up, ok := tt.up.(*stubUniques); ok && up.calls > 0 && !slices.Equal(up.excluded, []string{"1", "2"}) {
				t.Errorf("curated pool excluded %v, want [1 2]", up.excluded)
			}
		})
	}
}
