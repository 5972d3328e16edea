package models

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID          uuid.UUID `json:"id"`
	CourseID    uuid.UUID `json:"course_id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path,omitempty"`
	// ContentText holds pasted inline material; nil when the source is an
	// uploaded file.
	ContentText      *string   `json:"content_text,omitempty"`
	ProcessingStatus string    `json:"processing_status"`
	PageCount        *int      `json:"page_count,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

const (
	DocStatusUploaded   = "uploaded"
	DocStatusProcessing = "processing"
	DocStatusReady      = "ready"
	DocStatusFailed     = "failed"
)

// DocumentChunk is a bounded slice of a document's text stored with its own
// embedding. Chunks for a document are written as a set during ingestion;
// the document only becomes ready once all of them are persisted.
type DocumentChunk struct {
	ID             uuid.UUID `json:"id"`
	DocumentID     uuid.UUID `json:"document_id"`
	ChunkIndex     int       `json:"chunk_index"`
	PageNumber     *int      `json:"page_number,omitempty"`
	Content        string    `json:"content"`
	TokenCount     int       `json:"token_count"`
	Embedding      []float32 `json:"-"`
	EmbeddingModel string    `json:"embedding_model"`
	CreatedAt      time.Time `json:"created_at"`
}
