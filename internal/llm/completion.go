package llm

import "context"

// CompletionClient is the single-model chat wrapper used by the answer
// pipeline: one system prompt, one user message, generated text plus call
// latency back.
type CompletionClient struct {
	gateway *Gateway
	model   string
}

func NewCompletionClient(gateway *Gateway, model string) *CompletionClient {
	return &CompletionClient{gateway: gateway, model: model}
}

func (c *CompletionClient) Model() string { return c.model }

func (c *CompletionClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, int64, error) {
	resp, err := c.gateway.Chat(ctx, ChatRequest{
		Model:       c.model,
		Temperature: Float(0.2),
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
	})
	if err != nil {
		return "", 0, err
	}
	return resp.Content, resp.LatencyMs, nil
}
