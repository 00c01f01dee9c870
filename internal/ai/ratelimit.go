package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// NewLimiter returns a token bucket allowing perSecond calls with a burst of
// the same size. perSecond <= 0 means unlimited.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

type limitedGenerator struct {
	next    Generator
	limiter *rate.Limiter
}

// RateLimitGenerator makes every Generate call wait for a token from limiter.
func RateLimitGenerator(next Generator, limiter *rate.Limiter) Generator {
	return &limitedGenerator{next: next, limiter: limiter}
}

func (l *limitedGenerator) Generate(ctx context.Context, r Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("ai: rate limit wait: %w", err)
	}
	return l.next.Generate(ctx, r)
}

type limitedEmbedder struct {
	next    Embedder
	limiter *rate.Limiter
}

// RateLimitEmbedder makes every Embed call wait for a token from limiter.
// Share one limiter with RateLimitGenerator when both hit the same account.
func RateLimitEmbedder(next Embedder, limiter *rate.Limiter) Embedder {
	return &limitedEmbedder{next: next, limiter: limiter}
}

func (l *limitedEmbedder) Model() string { return l.next.Model() }

func (l *limitedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("ai: rate limit wait: %w", err)
	}
	return l.next.Embed(ctx, text)
}
