package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// chatCompletionRequest maps our request onto the go-openai one. The
// library's Temperature field carries omitempty, so a literal 0 would be
// dropped from the wire request; the smallest positive float32 is
// indistinguishable from 0 for sampling and survives serialization.
func chatCompletionRequest(req ChatRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	oReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: msgs,
	}
	if req.Temperature != nil {
		oReq.Temperature = float32(*req.Temperature)
		if oReq.Temperature == 0 {
			oReq.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.MaxTokens > 0 {
		oReq.MaxTokens = req.MaxTokens
	}
	return oReq
}

func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	oReq := chatCompletionRequest(req)

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, oReq)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &ChatResponse{
		Model:     resp.Model,
		Content:   content,
		LatencyMs: latency,
	}, nil
}

func (p *OpenAIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: req.Input,
		Model: openai.EmbeddingModel(req.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}

	return &EmbeddingResponse{
		Model:      req.Model,
		Embeddings: embeddings,
	}, nil
}
