// Package ai defines the text-generation and embedding capabilities the
// recommendation pipeline calls, and provides OpenAI-compatible and
// Anthropic-backed implementations.
package ai

import (
	"context"
	"errors"
	"strings"
)

// Request is one text-generation call.
type Request struct {
	// System is an optional system prompt.
	System string

	Prompt string

	// JSON asks the provider for a strict JSON object response. Callers must
	// still validate the shape; a provider may ignore the hint.
	JSON bool

	Temperature float64
	MaxTokens   int
}

// Temperatures used by the pipeline: low for structured JSON answers,
// higher for prose.
const (
	TemperatureJSON  = 0.3
	TemperatureProse = 0.7
)

// Generator produces free-form or JSON text.
// Implementations must be safe to call concurrently.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Embedder produces vector embeddings for text.
// Implementations must be safe to call concurrently.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)

	// Model names the embedding model; vectors from different models are
	// not comparable.
	Model() string
}

// ErrEmptyResponse is returned when a provider answers with no usable text.
var ErrEmptyResponse = errors.New("ai: empty response")

// StripFences removes markdown code fences a model may wrap around JSON.
func StripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
