package uniques_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nyashahama/gift-genius-backend/internal/catalog"
	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/metrics"
	"github.com/nyashahama/gift-genius-backend/internal/safety"
	"github.com/nyashahama/gift-genius-backend/internal/uniques"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	products           []gift.Product
	loadErr            error
	loads, saves, clrs int
}

func (m *memStore) LoadDefaultUniques(context.Context) ([]gift.Product, error) {
	m.loads++
	return m.products, m.loadErr
}

func (m *memStore) SaveDefaultUniques(_ context.Context, p []gift.Product) error {
	m.saves++
	m.products = p
	return nil
}

func (m *memStore) ClearDefaultUniques(context.Context) error {
	m.clrs++
	m.products = nil
	return nil
}

type staticSource []gift.Product

func (s staticSource) Products(context.Context) []gift.Product { return s }

type marker struct {
	word string
	vec  []float64
}

// keywordEmbedder maps text to the vector of the first marker it contains.
type keywordEmbedder struct {
	vectors []marker
	err     error
	calls   int
}

func (e *keywordEmbedder) Model() string { return "test" }

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	for _, m := range e.vectors {
		if strings.Contains(strings.ToLower(text), m.word) {
			return m.vec, nil
		}
	}
	return []float64{0, 0, 1}, nil
}

func catalogOf(byKeyword map[string][]gift.Product, calls map[string]int) catalog.Provider {
	return catalog.ProviderFunc(func(_ context.Context, kw string) []gift.Product {
		calls[kw]++
		return byKeyword[kw]
	})
}

func ids(n int, prefix string) []gift.Product {
	out := make([]gift.Product, n)
	for i := range out {
		out[i] = gift.Product{ID: prefix + string(rune('a'+i))}
	}
	return out
}

// ─── Pool ─────────────────────────────────────────────────────────────────────

func TestPool_FetchesTopFivePerKeywordAndDedupes(t *testing.T) {
	calls := map[string]int{}
	shared := gift.Product{ID: "shared"}
	cat := catalogOf(map[string][]gift.Product{
		"wellness":  append([]gift.Product{shared}, ids(6, "w")...),
		"hot sauce": {shared, {ID: "h1"}},
		"plants":    ids(2, "p"),
	}, calls)
	store := &memStore{}

	pool := uniques.NewPool(cat, store, discardLogger())
	got := pool.Products(context.Background())

	// wellness: shared + wa..wd (top 5), hot sauce: h1, plants: pa, pb.
	want := "shared,wa,wb,wc,wd,h1,pa,pb"
	if s := strings.Join(gift.IDs(got), ","); s != want {
		t.Errorf("pool = %s, want %s", s, want)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}

	pool.Products(context.Background())
	if calls["wellness"] != 1 {
		t.Errorf("second Products call refetched: %d", calls["wellness"])
	}
}

func TestPool_LoadsFromStoreBeforeFetching(t *testing.T) {
	calls := map[string]int{}
	store := &memStore{products: []gift.Product{{ID: "stored"}}}

	pool := uniques.NewPool(catalogOf(nil, calls), store, discardLogger())
	got := pool.Products(context.Background())

	if len(got) != 1 || got[0].ID != "stored" {
		t.Errorf("got %v", gift.IDs(got))
	}
	if len(calls) != 0 {
		t.Errorf("catalog should not be called, got %v", calls)
	}
}

func TestPool_StoreErrorFallsBackToFetch(t *testing.T) {
	calls := map[string]int{}
	store := &memStore{loadErr: errors.New("db down")}
	cat := catalogOf(map[string][]gift.Product{"plants": {{ID: "p1"}}}, calls)

	got := uniques.NewPool(cat, store, discardLogger()).Products(context.Background())
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("got %v", gift.IDs(got))
	}
}

func TestPool_RefreshAndClear(t *testing.T) {
	calls := map[string]int{}
	store := &memStore{}
	cat := catalogOf(map[string][]gift.Product{"plants": {{ID: "p1"}}}, calls)
	pool := uniques.NewPool(cat, store, discardLogger())
	ctx := context.Background()

	pool.Products(ctx)
	pool.Refresh(ctx)
	if calls["plants"] != 2 {
		t.Errorf("refresh did not refetch: %d", calls["plants"])
	}

	if err := pool.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if store.clrs != 1 || store.products != nil {
		t.Error("clear did not reach the store")
	}
	pool.Products(ctx)
	if calls["plants"] != 3 {
		t.Errorf("after clear: calls = %d, want 3", calls["plants"])
	}
}

func TestPool_NilStore(t *testing.T) {
	calls := map[string]int{}
	pool := uniques.NewPool(catalogOf(map[string][]gift.Product{"plants": {{ID: "p1"}}}, calls), nil, discardLogger())
	if got := pool.Products(context.Background()); len(got) != 1 {
		t.Errorf("got %d products", len(got))
	}
	if err := pool.Clear(context.Background()); err != nil {
		t.Errorf("clear with nil store: %v", err)
	}
}

// ─── Picker ───────────────────────────────────────────────────────────────────

func curated() staticSource {
	return staticSource{
		{ID: "hs", Name: "Hot Sauce Trio", Description: "spicy", Price: 30},
		{ID: "yoga", Name: "Yoga Wellness Kit", Description: "recovery", Price: 45},
		{ID: "nut", Name: "Nut Butter Set", Description: "almond", Price: 25},
		{ID: "lux", Name: "Luxury Plant", Description: "orchid", Price: 120},
	}
}

func newPicker(src uniques.Source, emb *keywordEmbedder, m *metrics.Collectors, intn func(int) int) *uniques.Picker {
	return uniques.NewPicker(uniques.PickerDeps{
		Source:   src,
		Screener: safety.NewScreener(safety.KeywordValidator{}, discardLogger()),
		Embedder: emb,
		Logger:   discardLogger(),
		Metrics:  m,
		Intn:     intn,
	})
}

func TestPicker_SemanticPick(t *testing.T) {
	emb := &keywordEmbedder{vectors: []marker{
		{"description: loves yoga", []float64{1, 0, 0}},
		{"yoga", []float64{0.9, 0.1, 0}},
		{"hot sauce", []float64{0.2, 0.9, 0}},
	}}
	p := newPicker(curated(), emb, nil, nil)

	max := 50.0
	got, ok := p.Pick(context.Background(), gift.Profile{
		Description: "loves yoga",
		Hates:       []string{"almond"},
		BudgetMax:   &max,
	})
	if !ok {
		t.Fatal("expected a pick")
	}
	if got.Product.ID != "yoga" || !got.Semantic {
		t.Errorf("pick = %+v, want semantic yoga", got)
	}
}

func TestPicker_NoDescriptionPicksAtRandom(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	emb := &keywordEmbedder{}
	p := newPicker(curated(), emb, m, func(n int) int { return n - 1 })

	got, ok := p.Pick(context.Background(), gift.Profile{})
	if !ok || got.Product.ID != "lux" || got.Semantic {
		t.Errorf("pick = %+v ok=%v, want random last element", got, ok)
	}
	if emb.calls != 0 {
		t.Error("embedder should not be called without a description")
	}
	if n := testutil.ToFloat64(m.SemanticUnavailable.WithLabelValues("no_description")); n != 1 {
		t.Errorf("unavailable counter = %v", n)
	}
}

func TestPicker_EmbeddingErrorPicksAtRandom(t *testing.T) {
	p := newPicker(curated(), &keywordEmbedder{err: errors.New("down")}, nil, func(int) int { return 0 })

	got, ok := p.Pick(context.Background(), gift.Profile{Description: "anything"})
	if !ok || got.Product.ID != "hs" || got.Semantic {
		t.Errorf("pick = %+v ok=%v", got, ok)
	}
}

func TestPicker_SkipsExcludedProducts(t *testing.T) {
	emb := &keywordEmbedder{vectors: []marker{
		{"description: loves yoga", []float64{1, 0, 0}},
		{"yoga", []float64{0.9, 0.1, 0}},
		{"hot sauce", []float64{0.2, 0.9, 0}},
	}}
	p := newPicker(curated(), emb, nil, nil)

	max := 50.0
	got, ok := p.Pick(context.Background(), gift.Profile{
		Description: "loves yoga",
		Hates:       []string{"almond"},
		BudgetMax:   &max,
	}, "yoga")
	if !ok {
		t.Fatal("expected a pick")
	}
	if got.Product.ID != "hs" {
		t.Errorf("pick = %s, want hs", got.Product.ID)
	}

	if _, ok := p.Pick(context.Background(), gift.Profile{}, "hs", "yoga", "nut", "lux"); ok {
		t.Error("expected no pick when every product is excluded")
	}
}

func TestPicker_YieldsNothing(t *testing.T) {
	min := 500.0
	tests := []struct {
		name    string
		src     uniques.Source
		profile gift.Profile
	}{
		{"empty pool", staticSource{}, gift.Profile{}},
		{"nothing in budget", curated(), gift.Profile{BudgetMin: &min}},
		{"nothing safe", staticSource{{ID: "nut", Name: "Nut Butter"}}, gift.Profile{Allergies: []string{"nut"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPicker(tt.src, &keywordEmbedder{}, nil, nil)
			if _, ok := p.Pick(context.Background(), tt.profile); ok {
				t.Error("expected no pick")
			}
		})
	}
}

func TestProfileText(t *testing.T) {
	got := uniques.ProfileText(gift.Profile{Description: "runner", Loves: []string{"tea", "figs"}})
	want := "Description: runner\nLoves: tea, figs"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
