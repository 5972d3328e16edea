package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/askclass/backend/internal/models"
	"github.com/askclass/backend/internal/queue"
)

type fakeDocStore struct {
	doc      *models.Document
	getErr   error
	statuses []string
}

func (f *fakeDocStore) GetByID(_ context.Context, _ uuid.UUID) (*models.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.doc, nil
}

func (f *fakeDocStore) UpdateStatus(_ context.Context, _ uuid.UUID, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeIngester struct {
	count int
	err   error
	text  string
}

func (f *fakeIngester) Ingest(_ context.Context, _ uuid.UUID, rawText string) (int, error) {
	f.text = rawText
	return f.count, f.err
}

func ingestTask(t *testing.T, docID uuid.UUID) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(queue.DocumentIngestPayload{DocumentID: docID.String()})
	require.NoError(t, err)
	return asynq.NewTask(queue.TypeDocumentIngest, payload)
}

func inlineDoc(text string) *models.Document {
	return &models.Document{
		ID:          uuid.New(),
		Filename:    "pasted-notes.txt",
		ContentText: &text,
	}
}

func TestProcessTaskIngestsInlineText(t *testing.T) {
	doc := inlineDoc("Gradient descent minimizes the cost function.")
	docs := &fakeDocStore{doc: doc}
	ingester := &fakeIngester{count: 3}
	w := NewIngestWorker(docs, ingester)

	err := w.ProcessTask(context.Background(), ingestTask(t, doc.ID))
	require.NoError(t, err)
	require.Equal(t, *doc.ContentText, ingester.text)

	// Ready is written by the ingestion pipeline, not the worker; the
	// worker only flips to processing up front.
	require.Equal(t, []string{models.DocStatusProcessing}, docs.statuses)
}

func TestProcessTaskEmptyDocumentResetsToUploaded(t *testing.T) {
	doc := inlineDoc("   \n\t  ")
	docs := &fakeDocStore{doc: doc}
	w := NewIngestWorker(docs, &fakeIngester{count: 0})

	err := w.ProcessTask(context.Background(), ingestTask(t, doc.ID))
	require.NoError(t, err)

	// A document that produced no chunks must not stay at processing.
	require.Equal(t, []string{models.DocStatusProcessing, models.DocStatusUploaded}, docs.statuses)
}

func TestProcessTaskIngestFailureMarksFailed(t *testing.T) {
	doc := inlineDoc("some lecture content")
	docs := &fakeDocStore{doc: doc}
	w := NewIngestWorker(docs, &fakeIngester{err: errors.New("rate limited")})

	err := w.ProcessTask(context.Background(), ingestTask(t, doc.ID))
	require.Error(t, err)
	require.Equal(t, []string{models.DocStatusProcessing, models.DocStatusFailed}, docs.statuses)
}

func TestProcessTaskFetchFailureMarksFailed(t *testing.T) {
	docs := &fakeDocStore{getErr: errors.New("no rows")}
	w := NewIngestWorker(docs, &fakeIngester{})

	err := w.ProcessTask(context.Background(), ingestTask(t, uuid.New()))
	require.Error(t, err)
	require.Equal(t, []string{models.DocStatusProcessing, models.DocStatusFailed}, docs.statuses)
}

func TestProcessTaskRejectsBadPayload(t *testing.T) {
	docs := &fakeDocStore{}
	w := NewIngestWorker(docs, &fakeIngester{})

	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeDocumentIngest, []byte("{not json")))
	require.Error(t, err)
	require.Empty(t, docs.statuses, "no status writes before the payload parses")
}
