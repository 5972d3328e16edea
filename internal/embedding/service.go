package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/askclass/backend/internal/llm"
)

// Client is the slice of the LLM gateway the embedding service needs.
type Client interface {
	Embed(ctx context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error)
}

// Service produces embeddings with a single fixed model. The model
// identifier is stored next to every vector so a future model change is
// detectable.
type Service struct {
	client Client
	model  string
}

func NewService(client Client, model string) *Service {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &Service{client: client, model: model}
}

func (s *Service) Model() string { return s.model }

// EmbedSingle returns the embedding vector for one text. Input is
// normalized by replacing newlines with spaces and trimming whitespace
// before it is sent.
func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}

func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	cleaned := make([]string, len(texts))
	for i, t := range texts {
		cleaned[i] = normalize(t)
	}

	resp, err := s.client.Embed(ctx, llm.EmbeddingRequest{
		Model: s.model,
		Input: cleaned,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

func normalize(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}
