package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/askclass/backend/internal/config"
)

// Gateway routes chat calls to the configured provider and embedding calls
// to OpenAI (the only configured provider with an embeddings endpoint).
// Every call gets a deadline; a timed-out call surfaces as a ProviderError.
// The gateway never retries: retry policy belongs to callers.
type Gateway struct {
	chat    Provider
	embed   Provider
	timeout time.Duration
}

func NewGateway(cfg config.LLMConfig) (*Gateway, error) {
	openAI := NewOpenAIProvider(cfg.OpenAIKey)

	var chat Provider
	switch cfg.Provider {
	case "", "openai":
		chat = openAI
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("LLM_PROVIDER=anthropic requires ANTHROPIC_API_KEY")
		}
		chat = NewAnthropicProvider(cfg.AnthropicKey)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Gateway{chat: chat, embed: openAI, timeout: timeout}, nil
}

func (g *Gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.chat.ChatCompletion(ctx, req)
	if err != nil {
		return nil, &ProviderError{Provider: g.chat.Name(), Op: "chat", Err: err}
	}
	return resp, nil
}

func (g *Gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.embed.GenerateEmbedding(ctx, req)
	if err != nil {
		return nil, &ProviderError{Provider: g.embed.Name(), Op: "embedding", Err: err}
	}
	return resp, nil
}
