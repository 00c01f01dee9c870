// Package safety rejects products that conflict with a recipient's hates,
// allergies and dietary restrictions.
//
// A Validator produces per-product decisions; the Screener applies them. The
// production Validator is an LLM check with a deterministic keyword fallback,
// composed with NewFallbackValidator.
package safety

import (
	"context"
	"log/slog"
	"slices"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
)

// Constraints are the recipient restrictions a product is checked against.
type Constraints struct {
	Hates     []string
	Allergies []string
	Dietary   []string
}

// FromProfile extracts the constraints of a normalized profile.
func FromProfile(p gift.Profile) Constraints {
	return Constraints{Hates: p.Hates, Allergies: p.Allergies, Dietary: p.Dietary}
}

// Active reports whether validation runs at all. Dietary restrictions alone
// do not trigger it; they only inform the LLM prompt when it does run.
func (c Constraints) Active() bool {
	return len(c.Hates) > 0 || len(c.Allergies) > 0
}

// Decision is the verdict for one product.
type Decision struct {
	ProductID string `json:"product_id"`
	Reject    bool   `json:"reject"`
	Reason    string `json:"reason,omitempty"`
}

// Validator decides which products to reject. pool names the candidate set
// for logs and prompts ("Path A", "Default Uniques", ...).
//
// A product absent from the returned decisions is treated as safe. A non-nil
// error means no decision could be made for the batch.
type Validator interface {
	Validate(ctx context.Context, products []gift.Product, c Constraints, pool string) ([]Decision, error)
}

// Screener filters products through a Validator.
type Screener struct {
	validator Validator
	logger    *slog.Logger
}

// NewScreener returns a Screener using v.
func NewScreener(v Validator, logger *slog.Logger) *Screener {
	return &Screener{validator: v, logger: logger}
}

// Screen returns the products that pass validation, in input order. An empty
// input returns an empty slice without calling the validator. When c is not
// Active every product passes unchanged.
func (s *Screener) Screen(ctx context.Context, products []gift.Product, c Constraints, pool string) ([]gift.Product, error) {
	if len(products) == 0 {
		return []gift.Product{}, nil
	}
	if !c.Active() {
		s.logger.Debug("safety: no restrictions, all products pass", "pool", pool, "count", len(products))
		return slices.Clone(products), nil
	}

	decisions, err := s.validator.Validate(ctx, products, c, pool)
	if err != nil {
		return nil, err
	}

	// First decision per id wins.
	byID := make(map[string]Decision, len(decisions))
	for _, d := range decisions {
		if _, seen := byID[d.ProductID]; !seen {
			byID[d.ProductID] = d
		}
	}

	safe := make([]gift.Product, 0, len(products))
	rejected := 0
	for _, p := range products {
		if d, ok := byID[p.ID]; ok && d.Reject {
			rejected++
			s.logger.Debug("safety: rejected",
				"pool", pool,
				"product_id", p.ID,
				"reason", d.Reason,
			)
			continue
		}
		safe = append(safe, p)
	}

	s.logger.Info("safety: screened",
		"pool", pool,
		"safe", len(safe),
		"rejected", rejected,
	)
	return safe, nil
}
