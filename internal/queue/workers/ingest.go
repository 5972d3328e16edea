// Package workers holds the asynq task handlers run by the worker process.
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/askclass/backend/internal/models"
	"github.com/askclass/backend/internal/queue"
	"github.com/askclass/backend/pkg/textextract"
)

type DocumentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type Ingester interface {
	Ingest(ctx context.Context, documentID uuid.UUID, rawText string) (int, error)
}

// IngestWorker processes uploaded documents in the background: extract
// text, chunk, embed, persist. Inline-text documents skip extraction.
type IngestWorker struct {
	docs     DocumentStore
	pipeline Ingester
}

func NewIngestWorker(docs DocumentStore, pipeline Ingester) *IngestWorker {
	return &IngestWorker{docs: docs, pipeline: pipeline}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document id: %w", err)
	}

	slog.Info("ingesting document", "document_id", docID)

	if err := w.docs.UpdateStatus(ctx, docID, models.DocStatusProcessing); err != nil {
		return fmt.Errorf("update status to processing: %w", err)
	}

	doc, err := w.docs.GetByID(ctx, docID)
	if err != nil {
		w.fail(ctx, docID)
		return fmt.Errorf("get document: %w", err)
	}

	text, err := w.documentText(doc)
	if err != nil {
		w.fail(ctx, docID)
		return fmt.Errorf("extract text: %w", err)
	}

	count, err := w.pipeline.Ingest(ctx, docID, text)
	if err != nil {
		w.fail(ctx, docID)
		return fmt.Errorf("ingest document: %w", err)
	}

	// Nothing to index: put the document back to uploaded instead of
	// stranding it at processing.
	if count == 0 {
		slog.Warn("document produced no chunks", "document_id", docID, "filename", doc.Filename)
		if err := w.docs.UpdateStatus(ctx, docID, models.DocStatusUploaded); err != nil {
			return fmt.Errorf("reset empty document status: %w", err)
		}
		return nil
	}

	slog.Info("document ingested", "document_id", docID, "filename", doc.Filename)
	return nil
}

// documentText returns the inline content for pasted material, otherwise
// reads the uploaded file and extracts text by format.
func (w *IngestWorker) documentText(doc *models.Document) (string, error) {
	if doc.ContentText != nil {
		return *doc.ContentText, nil
	}

	data, err := os.ReadFile(doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", doc.StoragePath, err)
	}
	extracted, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), doc.Filename)
	if err != nil {
		return "", err
	}
	return extracted.Content, nil
}

func (w *IngestWorker) fail(ctx context.Context, docID uuid.UUID) {
	if err := w.docs.UpdateStatus(ctx, docID, models.DocStatusFailed); err != nil {
		slog.Error("failed to mark document failed", "document_id", docID, "error", err)
	}
}
