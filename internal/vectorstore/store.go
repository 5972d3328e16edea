package vectorstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/askclass/backend/internal/models"
)

// SearchResult is one similarity hit. Score is cosine similarity derived
// from pgvector's cosine distance (1 - distance); higher is more similar.
type SearchResult struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Content    string    `json:"content"`
	PageNumber *int      `json:"page_number,omitempty"`
	Score      float64   `json:"score"`
}

// GroundingSource is one piece of material text shown to the completion
// model, labeled by its origin.
type GroundingSource struct {
	Filename   string
	PageNumber *int
	Content    string
}

// Store persists document chunks and serves the two retrieval paths of the
// answer pipeline: the ranked citation search and the full grounding fetch.
type Store interface {
	InsertChunk(ctx context.Context, chunk models.DocumentChunk) error

	// SimilaritySearch ranks chunks of the given documents by cosine
	// similarity to the query vector, capped at topK. Chunks without an
	// embedding are excluded.
	SimilaritySearch(ctx context.Context, documentIDs []uuid.UUID, query []float32, topK int) ([]SearchResult, error)

	// SessionGrounding returns every chunk of the session's active
	// documents, ordered by source filename then chunk index.
	SessionGrounding(ctx context.Context, sessionID uuid.UUID) ([]GroundingSource, error)

	// ChunklessActiveContent returns raw inline content of active
	// documents that produced no chunks, so short pasted material is never
	// silently excluded from grounding.
	ChunklessActiveContent(ctx context.Context, sessionID uuid.UUID) ([]GroundingSource, error)

	// ActiveDocumentIDs resolves the session's currently active document
	// set.
	ActiveDocumentIDs(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error)
}
