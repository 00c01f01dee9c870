// Package recommend runs the three-pick recommendation pipeline: catalog
// fetch, budget filter, the explicit and semantic candidate paths, safety
// screening, selection and explanations.
//
// A run is sequential. Only gift.ErrInsufficientCandidates and
// gift.ErrInsufficientSafeCandidates are expected failures; every other
// degradation is absorbed by a fallback and logged.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nyashahama/gift-genius-backend/internal/ai"
	"github.com/nyashahama/gift-genius-backend/internal/catalog"
	"github.com/nyashahama/gift-genius-backend/internal/explain"
	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/metrics"
	"github.com/nyashahama/gift-genius-backend/internal/safety"
	"github.com/nyashahama/gift-genius-backend/internal/scoring"
)

// Safety pool labels.
const (
	PoolPathA = "Path A"
	PoolPathB = "Path B"
)

// Deps wires a Pipeline. Uniques and Metrics may be nil.
type Deps struct {
	Catalog   catalog.Provider
	Embedder  ai.Embedder
	Screener  *safety.Screener
	Uniques   UniquePicker
	Explainer *explain.Explainer
	Scorer    *scoring.Scorer
	Logger    *slog.Logger
	Metrics   *metrics.Collectors
}

// Pipeline produces recommendations. It holds no per-request state; caches
// live in the injected collaborators.
type Pipeline struct {
	catalog   catalog.Provider
	embedder  ai.Embedder
	screener  *safety.Screener
	selector  *Selector
	explainer *explain.Explainer
	logger    *slog.Logger
	metrics   *metrics.Collectors
}

// New returns a Pipeline.
func New(d Deps) *Pipeline {
	if d.Scorer == nil {
		d.Scorer = scoring.Default()
	}
	return &Pipeline{
		catalog:   d.Catalog,
		embedder:  d.Embedder,
		screener:  d.Screener,
		selector:  NewSelector(d.Scorer, d.Uniques, d.Logger, d.Metrics),
		explainer: d.Explainer,
		logger:    d.Logger,
		metrics:   d.Metrics,
	}
}

// Recommend returns the three picks for profile, with explanations filled in.
// Fatal conditions are returned as *gift.PipelineError.
func (p *Pipeline) Recommend(ctx context.Context, profile gift.Profile) (*gift.Picks, error) {
	start := time.Now()
	picks, err := p.run(ctx, profile.Normalize())
	p.metrics.ObservePipeline(outcome(err), time.Since(start))
	return picks, err
}

func (p *Pipeline) run(ctx context.Context, profile gift.Profile) (*gift.Picks, error) {
	keyword := SearchKeyword(profile)
	candidates := p.catalog.Search(ctx, keyword)
	p.logger.Info("recommend: candidates fetched", "keyword", keyword, "count", len(candidates))
	if len(candidates) < gift.MinCandidates {
		return nil, &gift.PipelineError{
			Err:   gift.ErrInsufficientCandidates,
			Found: len(candidates),
			Need:  gift.MinCandidates,
		}
	}

	inBudget := gift.FilterBudget(candidates, profile.BudgetMin, profile.BudgetMax)

	pathA := ExplicitMatches(inBudget, profile.Loves)
	pathB, sims, err := SemanticMatches(ctx, p.embedder, inBudget, profile)
	if err != nil {
		return nil, err
	}
	p.logger.Info("recommend: paths built",
		"in_budget", len(inBudget),
		"path_a", len(pathA),
		"path_b", len(pathB),
	)

	c := safety.FromProfile(profile)
	safeA, err := p.screener.Screen(ctx, pathA, c, PoolPathA)
	if err != nil {
		return nil, fmt.Errorf("recommend: screen path a: %w", err)
	}
	if len(safeA) < gift.MinSafeCandidates {
		return nil, &gift.PipelineError{
			Err:   gift.ErrInsufficientSafeCandidates,
			Found: len(safeA),
			Need:  gift.MinSafeCandidates,
		}
	}
	safeB, err := p.screener.Screen(ctx, pathB, c, PoolPathB)
	if err != nil {
		return nil, fmt.Errorf("recommend: screen path b: %w", err)
	}

	picks := p.selector.Select(ctx, Pools{PathA: safeA, PathB: safeB, Similarities: sims}, profile)
	p.explainer.Fill(ctx, picks, profile)
	return picks, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, gift.ErrInsufficientCandidates):
		return metrics.OutcomeInsufficientCandidates
	case errors.Is(err, gift.ErrInsufficientSafeCandidates):
		return metrics.OutcomeInsufficientSafeCandidates
	default:
		return metrics.OutcomeError
	}
}
