package safety

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/metrics"
)

// fallbackValidator calls primary and, when it fails, logs the degradation
// and answers from secondary instead.
type fallbackValidator struct {
	primary   Validator
	secondary Validator
	logger    *slog.Logger
	metrics   *metrics.Collectors
}

// NewFallbackValidator returns a Validator that degrades from primary to
// secondary. m may be nil.
func NewFallbackValidator(primary, secondary Validator, logger *slog.Logger, m *metrics.Collectors) Validator {
	return &fallbackValidator{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
		metrics:   m,
	}
}

func (f *fallbackValidator) Validate(ctx context.Context, products []gift.Product, c Constraints, pool string) ([]Decision, error) {
	decisions, err := f.primary.Validate(ctx, products, c, pool)
	if err == nil {
		return decisions, nil
	}

	f.logger.Warn("safety: validation degraded to keyword fallback",
		"pool", pool,
		"products", len(products),
		"error", err,
	)
	f.metrics.SafetyDegradedFor(pool)

	if f.secondary == nil {
		return nil, fmt.Errorf("safety: primary failed and no secondary configured: %w", err)
	}
	return f.secondary.Validate(ctx, products, c, pool)
}
