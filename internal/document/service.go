// Package document manages course material records. The heavy lifting
// (chunking, embedding) happens in the ingestion pipeline; this service
// owns the document rows and their session links.
package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askclass/backend/internal/models"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type CreateRequest struct {
	CourseID    uuid.UUID
	Filename    string
	StoragePath string
	// ContentText is set for pasted inline material; empty for uploads.
	ContentText string
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Document, error) {
	if strings.TrimSpace(req.Filename) == "" {
		return nil, fmt.Errorf("%w: filename required", models.ErrValidation)
	}

	var contentText *string
	if req.ContentText != "" {
		contentText = &req.ContentText
	}

	var doc models.Document
	err := s.db.QueryRow(ctx,
		`INSERT INTO documents (course_id, filename, storage_path, content_text)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, course_id, filename, storage_path, content_text, processing_status, page_count, uploaded_at`,
		req.CourseID, req.Filename, req.StoragePath, contentText,
	).Scan(&doc.ID, &doc.CourseID, &doc.Filename, &doc.StoragePath, &doc.ContentText,
		&doc.ProcessingStatus, &doc.PageCount, &doc.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return &doc, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`SELECT id, course_id, filename, storage_path, content_text, processing_status, page_count, uploaded_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.CourseID, &doc.Filename, &doc.StoragePath, &doc.ContentText,
		&doc.ProcessingStatus, &doc.PageCount, &doc.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *Service) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, course_id, filename, storage_path, content_text, processing_status, page_count, uploaded_at
		 FROM documents WHERE course_id = $1 ORDER BY uploaded_at DESC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.CourseID, &d.Filename, &d.StoragePath, &d.ContentText,
			&d.ProcessingStatus, &d.PageCount, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE documents SET processing_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

// MarkReady advances the document to ready and records the chunk count.
// Called only after every chunk has been persisted.
func (s *Service) MarkReady(ctx context.Context, id uuid.UUID, chunkCount int) error {
	_, err := s.db.Exec(ctx,
		`UPDATE documents
		 SET processing_status = $2, page_count = $3, processed_at = now()
		 WHERE id = $1`,
		id, models.DocStatusReady, chunkCount)
	if err != nil {
		return fmt.Errorf("mark document ready: %w", err)
	}
	return nil
}

func (s *Service) LinkToSession(ctx context.Context, sessionID, documentID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO session_documents (session_id, document_id, is_active)
		 VALUES ($1, $2, true)
		 ON CONFLICT (session_id, document_id) DO UPDATE SET is_active = true`,
		sessionID, documentID)
	if err != nil {
		return fmt.Errorf("link document to session: %w", err)
	}
	return nil
}

func (s *Service) SetLinkActive(ctx context.Context, sessionID, documentID uuid.UUID, active bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE session_documents SET is_active = $3 WHERE session_id = $1 AND document_id = $2`,
		sessionID, documentID, active)
	if err != nil {
		return fmt.Errorf("update session document link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
