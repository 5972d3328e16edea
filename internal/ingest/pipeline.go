// Package ingest turns a document's raw text into stored, searchable
// chunks.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/askclass/backend/internal/models"
	"github.com/askclass/backend/pkg/chunker"
	"github.com/askclass/backend/pkg/tokenizer"
)

type ChunkStore interface {
	InsertChunk(ctx context.Context, chunk models.DocumentChunk) error
}

type DocumentMarker interface {
	MarkReady(ctx context.Context, id uuid.UUID, chunkCount int) error
}

type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	Model() string
}

type Pipeline struct {
	chunks   ChunkStore
	docs     DocumentMarker
	embedder Embedder
	opts     chunker.Options
}

func NewPipeline(chunks ChunkStore, docs DocumentMarker, embedder Embedder) *Pipeline {
	return &Pipeline{
		chunks:   chunks,
		docs:     docs,
		embedder: embedder,
		opts:     chunker.DefaultOptions(),
	}
}

// Ingest chunks the text, embeds and persists each chunk in index order,
// then marks the document ready with its chunk count. It returns the
// number of chunks persisted. Empty text yields zero chunks and the
// status does not advance; the caller decides what an empty document
// means. If any chunk fails to embed or persist, already-written chunks
// remain but the document never reaches ready, keeping partial ingestion
// off the retrieval path.
func (p *Pipeline) Ingest(ctx context.Context, documentID uuid.UUID, rawText string) (int, error) {
	if strings.TrimSpace(rawText) == "" {
		slog.Info("skipping empty document", "document_id", documentID)
		return 0, nil
	}

	textChunks := chunker.Split(rawText, p.opts)
	if len(textChunks) == 0 {
		return 0, nil
	}

	for _, tc := range textChunks {
		vector, err := p.embedder.EmbedSingle(ctx, tc.Content)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d: %w", tc.Index, err)
		}

		err = p.chunks.InsertChunk(ctx, models.DocumentChunk{
			DocumentID:     documentID,
			ChunkIndex:     tc.Index,
			PageNumber:     tc.Page,
			Content:        tc.Content,
			TokenCount:     tokenizer.EstimateTokens(tc.Content),
			Embedding:      vector,
			EmbeddingModel: p.embedder.Model(),
		})
		if err != nil {
			return 0, fmt.Errorf("persist chunk %d: %w", tc.Index, err)
		}
	}

	if err := p.docs.MarkReady(ctx, documentID, len(textChunks)); err != nil {
		return 0, fmt.Errorf("mark ready: %w", err)
	}

	slog.Info("document ingested", "document_id", documentID, "chunks", len(textChunks))
	return len(textChunks), nil
}
