// Package metrics provides the Prometheus collectors for the recommendation
// pipeline and its degradation paths.
//
// Collectors are registered on an explicit Registerer so tests can use a
// fresh registry per case. A nil *Collectors is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline outcomes.
const (
	OutcomeSuccess                    = "success"
	OutcomeInsufficientCandidates     = "insufficient_candidates"
	OutcomeInsufficientSafeCandidates = "insufficient_safe_candidates"
	OutcomeError                      = "error"
)

// Catalog fetch outcomes.
const (
	FetchOK          = "ok"
	FetchEmpty       = "empty"
	FetchError       = "error"
	FetchBreakerOpen = "breaker_open"
	FetchCacheHit    = "cache_hit"
)

// Collectors groups every metric the service records.
type Collectors struct {
	PipelineRuns         *prometheus.CounterVec
	PipelineDuration     prometheus.Histogram
	SafetyDegraded       *prometheus.CounterVec
	UniqueTier           *prometheus.CounterVec
	ExplanationFallbacks *prometheus.CounterVec
	CatalogFetches       *prometheus.CounterVec
	SemanticUnavailable  *prometheus.CounterVec
	Reminders            *prometheus.CounterVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		PipelineRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gift_pipeline_runs_total",
				Help: "Recommendation pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		PipelineDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name: "gift_pipeline_duration_seconds",
				Help: "Wall time of a recommendation pipeline run",
				// Dominated by sequential LLM and embedding calls.
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
			},
		),
		SafetyDegraded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gift_safety_validation_degraded_total",
				Help: "Safety validations that fell back to keyword matching",
			},
			[]string{"pool"},
		),
		UniqueTier: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gift_unique_pick_tier_total",
				Help: "Which fallback tier produced the unique pick",
			},
			[]string{"tier"},
		),
		ExplanationFallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gift_explanation_fallbacks_total",
				Help: "Explanations replaced by the fixed template",
			},
			[]string{"category"},
		),
		CatalogFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gift_catalog_fetches_total",
				Help: "Catalog searches by outcome",
			},
			[]string{"outcome"},
		),
		SemanticUnavailable: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gift_semantic_ranking_unavailable_total",
				Help: "Default-unique picks made at random because semantic ranking was unavailable",
			},
			[]string{"reason"},
		),
		Reminders: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gift_birthday_reminders_total",
				Help: "Birthday reminder attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (c *Collectors) ObservePipeline(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.PipelineRuns.WithLabelValues(outcome).Inc()
	c.PipelineDuration.Observe(d.Seconds())
}

func (c *Collectors) SafetyDegradedFor(pool string) {
	if c == nil {
		return
	}
	c.SafetyDegraded.WithLabelValues(pool).Inc()
}

func (c *Collectors) UniqueTierUsed(tier string) {
	if c == nil {
		return
	}
	c.UniqueTier.WithLabelValues(tier).Inc()
}

func (c *Collectors) ExplanationFallback(category string) {
	if c == nil {
		return
	}
	c.ExplanationFallbacks.WithLabelValues(category).Inc()
}

func (c *Collectors) CatalogFetch(outcome string) {
	if c == nil {
		return
	}
	c.CatalogFetches.WithLabelValues(outcome).Inc()
}

func (c *Collectors) SemanticRankingUnavailable(reason string) {
	if c == nil {
		return
	}
	c.SemanticUnavailable.WithLabelValues(reason).Inc()
}

func (c *Collectors) Reminder(outcome string) {
	if c == nil {
		return
	}
	c.Reminders.WithLabelValues(outcome).Inc()
}
