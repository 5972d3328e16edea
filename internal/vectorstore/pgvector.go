package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/askclass/backend/internal/models"
)

type PgVectorStore struct {
	db *pgxpool.Pool
}

func NewPgVectorStore(db *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{db: db}
}

func (s *PgVectorStore) InsertChunk(ctx context.Context, chunk models.DocumentChunk) error {
	id := chunk.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO document_chunks (id, document_id, chunk_index, page_number, content, token_count, embedding, embedding_model)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, chunk.DocumentID, chunk.ChunkIndex, chunk.PageNumber, chunk.Content,
		chunk.TokenCount, pgvector.NewVector(chunk.Embedding), chunk.EmbeddingModel,
	)
	if err != nil {
		return fmt.Errorf("insert chunk %d: %w", chunk.ChunkIndex, err)
	}
	return nil
}

func (s *PgVectorStore) SimilaritySearch(ctx context.Context, documentIDs []uuid.UUID, query []float32, topK int) ([]SearchResult, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}

	embedding := pgvector.NewVector(query)

	// Only fully ingested documents are searchable; chunks left behind by
	// a failed or in-flight ingestion never become citations.
	rows, err := s.db.Query(ctx,
		`SELECT dc.id, dc.document_id, dc.content, dc.page_number,
		        1 - (dc.embedding <=> $1) AS score
		 FROM document_chunks dc
		 JOIN documents d ON d.id = dc.document_id
		 WHERE dc.document_id = ANY($2)
		   AND d.processing_status = $3
		   AND dc.embedding IS NOT NULL
		 ORDER BY dc.embedding <=> $1
		 LIMIT $4`,
		embedding, documentIDs, models.DocStatusReady, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &r.PageNumber, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PgVectorStore) SessionGrounding(ctx context.Context, sessionID uuid.UUID) ([]GroundingSource, error) {
	// Same ready gate as SimilaritySearch: a document linked while its
	// ingestion is still running (or after it failed partway) must not
	// leak partial chunks into the grounding context. Unprocessed short
	// text still reaches the prompt via ChunklessActiveContent.
	rows, err := s.db.Query(ctx,
		`SELECT d.filename, dc.page_number, dc.content
		 FROM session_documents sd
		 JOIN documents d ON d.id = sd.document_id
		 JOIN document_chunks dc ON dc.document_id = d.id
		 WHERE sd.session_id = $1 AND sd.is_active = true
		   AND d.processing_status = $2
		 ORDER BY d.filename, dc.chunk_index`,
		sessionID, models.DocStatusReady,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch session grounding: %w", err)
	}
	defer rows.Close()

	var sources []GroundingSource
	for rows.Next() {
		var g GroundingSource
		if err := rows.Scan(&g.Filename, &g.PageNumber, &g.Content); err != nil {
			return nil, fmt.Errorf("scan grounding source: %w", err)
		}
		sources = append(sources, g)
	}
	return sources, rows.Err()
}

func (s *PgVectorStore) ChunklessActiveContent(ctx context.Context, sessionID uuid.UUID) ([]GroundingSource, error) {
	rows, err := s.db.Query(ctx,
		`SELECT d.filename, d.content_text
		 FROM session_documents sd
		 JOIN documents d ON d.id = sd.document_id
		 WHERE sd.session_id = $1 AND sd.is_active = true
		   AND d.content_text IS NOT NULL AND d.content_text <> ''
		   AND NOT EXISTS (SELECT 1 FROM document_chunks dc WHERE dc.document_id = d.id)
		 ORDER BY d.filename`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch chunkless content: %w", err)
	}
	defer rows.Close()

	var sources []GroundingSource
	for rows.Next() {
		var g GroundingSource
		if err := rows.Scan(&g.Filename, &g.Content); err != nil {
			return nil, fmt.Errorf("scan chunkless content: %w", err)
		}
		sources = append(sources, g)
	}
	return sources, rows.Err()
}

func (s *PgVectorStore) ActiveDocumentIDs(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT document_id FROM session_documents WHERE session_id = $1 AND is_active = true`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch active documents: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
