// Package queue enqueues and routes background tasks over redis.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/askclass/backend/internal/config"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueDocumentIngest schedules extraction, chunking and embedding for
// an uploaded document. The long timeout covers large PDFs embedded chunk
// by chunk.
func (c *Client) EnqueueDocumentIngest(payload DocumentIngestPayload) error {
	return c.enqueue(TypeDocumentIngest, payload, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute))
}

func (c *Client) enqueue(taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := c.client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
