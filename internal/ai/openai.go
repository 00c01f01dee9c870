package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultOpenAIBaseURL is the public OpenAI API root.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient implements Generator and Embedder against any
// OpenAI-compatible /chat/completions and /embeddings endpoints.
type OpenAIClient struct {
	apiKey         string
	baseURL        string
	chatModel      string
	embeddingModel string
	httpClient     *http.Client
}

// OpenAIConfig configures NewOpenAIClient. Empty fields take defaults.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string // default DefaultOpenAIBaseURL
	ChatModel      string // default "gpt-4o-mini"
	EmbeddingModel string // default "text-embedding-3-small"
	Timeout        time.Duration
}

// NewOpenAIClient returns a client for an OpenAI-compatible API.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenAIClient{
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
	}
}

// ─── OPENAI-COMPATIBLE API SHAPES ────────────────────────────────────────────

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat instructs the model to return valid JSON.
type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *openAIError `json:"error"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *openAIError `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// Model returns the embedding model name.
func (c *OpenAIClient) Model() string { return c.embeddingModel }

// Generate calls the chat completions endpoint and returns the content of
// the first choice.
func (c *OpenAIClient) Generate(ctx context.Context, r Request) (string, error) {
	reqBody := openAIRequest{
		Model:       c.chatModel,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	}
	if r.JSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if r.System != "" {
		reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "system", Content: r.System})
	}
	reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "user", Content: r.Prompt})

	var parsed openAIResponse
	if err := c.post(ctx, "/chat/completions", reqBody, &parsed, func() *openAIError { return parsed.Error }); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if r.JSON {
		content = StripFences(content)
	}
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// Embed calls the embeddings endpoint for a single input.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	var parsed embeddingResponse
	reqBody := embeddingRequest{Model: c.embeddingModel, Input: text}
	if err := c.post(ctx, "/embeddings", reqBody, &parsed, func() *openAIError { return parsed.Error }); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: no embedding in response")
	}
	return parsed.Data[0].Embedding, nil
}

// post sends one JSON request and decodes the response into out. apiErr is
// consulted after decoding so provider error bodies surface with their
// message rather than a bare status code.
func (c *OpenAIClient) post(ctx context.Context, path string, body, out any, apiErr func() *openAIError) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("openai: read response: %w", err)
	}

	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("openai: unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if e := apiErr(); e != nil {
		return fmt.Errorf("openai: API error %s: %s", e.Type, e.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}
	return nil
}
