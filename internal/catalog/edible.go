package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/metrics"
)

// DefaultEdibleURL is the public Edible Arrangements search endpoint.
const DefaultEdibleURL = "https://www.ediblearrangements.com/api/search/"

// EdibleConfig configures NewEdibleClient. Zero values take defaults.
type EdibleConfig struct {
	URL     string        // default DefaultEdibleURL
	Timeout time.Duration // default 10s

	// FailureThreshold consecutive failures open the breaker (default 5).
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before a probe
	// (default 30s).
	OpenTimeout time.Duration
}

// EdibleClient is the Provider backed by the Edible search API.
type EdibleClient struct {
	url        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]gift.Product]
	logger     *slog.Logger
	metrics    *metrics.Collectors
}

// NewEdibleClient returns a Provider that POSTs {"keyword": k} to the search
// endpoint. m may be nil.
func NewEdibleClient(cfg EdibleConfig, logger *slog.Logger, m *metrics.Collectors) *EdibleClient {
	if cfg.URL == "" {
		cfg.URL = DefaultEdibleURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	c := &EdibleClient{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		metrics:    m,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]gift.Product](gobreaker.Settings{
		Name:        "edible-search",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("catalog: circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c
}

// Search fetches products for keyword. Failures are logged and yield an
// empty slice.
func (c *EdibleClient) Search(ctx context.Context, keyword string) []gift.Product {
	products, err := c.breaker.Execute(func() ([]gift.Product, error) {
		return c.fetch(ctx, keyword)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.CatalogFetch(metrics.FetchBreakerOpen)
		c.logger.Warn("catalog: search skipped, breaker open", "keyword", keyword)
		return []gift.Product{}
	case err != nil:
		c.metrics.CatalogFetch(metrics.FetchError)
		c.logger.Warn("catalog: search failed", "keyword", keyword, "error", err)
		return []gift.Product{}
	case len(products) == 0:
		c.metrics.CatalogFetch(metrics.FetchEmpty)
	default:
		c.metrics.CatalogFetch(metrics.FetchOK)
	}
	c.logger.Debug("catalog: search complete", "keyword", keyword, "count", len(products))
	return products
}

// ─── EDIBLE API SHAPES ────────────────────────────────────────────────────────

// edibleItem mirrors one element of the search response array. Fields whose
// JSON type varies between products are kept raw and parsed leniently.
type edibleItem struct {
	ID                 json.RawMessage `json:"id"`
	Alt                string          `json:"alt"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	MetaTagDescription string          `json:"metaTagDescription"`
	MaxPrice           json.RawMessage `json:"maxPrice"`
	MinPrice           json.RawMessage `json:"minPrice"`
	Image              string          `json:"image"`
	Thumbnail          string          `json:"thumbnail"`
	IngredientNames    string          `json:"ingrediantNames"`
	Occasions          json.RawMessage `json:"occasions"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

func (c *EdibleClient) fetch(ctx context.Context, keyword string) ([]gift.Product, error) {
	body, err := json.Marshal(map[string]string{"keyword": keyword})
	if err != nil {
		return nil, fmt.Errorf("catalog: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://www.ediblearrangements.com/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("catalog: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("catalog: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(respBytes, &items); err != nil {
		return nil, fmt.Errorf("catalog: unmarshal response: %w", err)
	}

	return c.parseItems(items), nil
}

// parseItems converts raw items to products. Rank follows array position
// (1-based) even when earlier items are skipped.
func (c *EdibleClient) parseItems(items []json.RawMessage) []gift.Product {
	products := make([]gift.Product, 0, len(items))
	for i, raw := range items {
		p, err := parseItem(raw, i+1)
		if err != nil {
			c.logger.Debug("catalog: skipping unparseable item", "index", i+1, "error", err)
			continue
		}
		products = append(products, p)
	}
	return products
}

func parseItem(raw json.RawMessage, rank int) (gift.Product, error) {
	var it edibleItem
	if err := json.Unmarshal(raw, &it); err != nil {
		return gift.Product{}, err
	}

	id, err := rawString(it.ID)
	if err != nil {
		return gift.Product{}, fmt.Errorf("id: %w", err)
	}
	if id == "" {
		return gift.Product{}, errors.New("missing id")
	}

	price, err := firstNumber(it.MaxPrice, it.MinPrice)
	if err != nil {
		return gift.Product{}, fmt.Errorf("price: %w", err)
	}

	name := strings.TrimSpace(it.Alt)
	if name == "" {
		name = strings.TrimSpace(it.Name)
	}
	if name == "" {
		name = "Unknown Product"
	}

	return gift.Product{
		ID:              id,
		Name:            name,
		Description:     Sanitize(it.Description),
		MetaDescription: Sanitize(it.MetaTagDescription),
		Price:           price,
		ImageURL:        it.Image,
		ThumbnailURL:    it.Thumbnail,
		Ingredients:     it.IngredientNames,
		PopularityRank:  gift.Rank(rank),
		Occasions:       parseOccasions(it.Occasions),
	}, nil
}

// rawString reads a JSON string or number as a string. null and absent
// values are "".
func rawString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// firstNumber returns the first present value parsed as a float. Strings
// holding numbers are accepted. A present zero is returned as is; only absent
// or null values fall through. All absent means 0.
func firstNumber(candidates ...json.RawMessage) (float64, error) {
	for _, raw := range candidates {
		s, err := rawString(raw)
		if err != nil {
			return 0, err
		}
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		if f < 0 {
			return 0, fmt.Errorf("negative value %v", f)
		}
		return f, nil
	}
	return 0, nil
}

// parseOccasions accepts ["Birthday", ...] or [{"name": "Birthday"}, ...]
// and returns lowercase tags. Anything else yields no tags.
func parseOccasions(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return out
	}
	for _, e := range entries {
		var name string
		if err := json.Unmarshal(e, &name); err != nil {
			var obj struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(e, &obj); err != nil {
				continue
			}
			name = obj.Name
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
