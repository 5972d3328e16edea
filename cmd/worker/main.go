package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/askclass/backend/internal/config"
	"github.com/askclass/backend/internal/database"
	"github.com/askclass/backend/internal/document"
	"github.com/askclass/backend/internal/embedding"
	"github.com/askclass/backend/internal/ingest"
	"github.com/askclass/backend/internal/llm"
	"github.com/askclass/backend/internal/queue"
	"github.com/askclass/backend/internal/queue/workers"
	"github.com/askclass/backend/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	db, err := database.NewPool(context.Background(), cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	gateway, err := llm.NewGateway(cfg.LLM)
	if err != nil {
		slog.Error("failed to build llm gateway", "error", err)
		os.Exit(1)
	}

	docSvc := document.NewService(db)
	vs := vectorstore.NewPgVectorStore(db)
	embedSvc := embedding.NewService(gateway, cfg.LLM.EmbeddingModel)
	pipeline := ingest.NewPipeline(vs, docSvc, embedSvc)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	ingestWorker := workers.NewIngestWorker(docSvc, pipeline)
	registry.Register(queue.TypeDocumentIngest, asynq.HandlerFunc(ingestWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
