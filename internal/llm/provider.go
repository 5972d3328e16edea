package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider abstracts the external model API (OpenAI or Anthropic). One chat
// provider and one embedding provider are selected at startup; there is no
// runtime multiplexing.
type Provider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)
	Name() string
}

type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	// Temperature nil means use the provider default. An explicit zero is
	// sent as zero, which structured-output callers rely on.
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// Float is a convenience for ChatRequest.Temperature literals.
func Float(v float64) *float64 { return &v }

type ChatResponse struct {
	Model   string `json:"model"`
	Content string `json:"content"`
	// LatencyMs is wall-clock time around the provider call only,
	// excluding any queueing in this process.
	LatencyMs int64 `json:"latency_ms"`
}

type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type EmbeddingResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// ProviderError wraps any failure of an external model call (network, auth,
// quota, timeout). It is never retried here; callers decide.
type ProviderError struct {
	Provider string
	Op       string // "chat" or "embedding"
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
