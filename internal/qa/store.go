// Package qa persists questions, answers, citations and feedback.
package qa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askclass/backend/internal/models"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// QuestionRecord is a question joined with its answer, citations and
// feedback tally, as the report aggregator consumes it.
type QuestionRecord struct {
	models.Question
	Answer   *models.AnswerView    `json:"answer,omitempty"`
	Feedback *models.FeedbackTally `json:"feedback,omitempty"`
}

func (s *Store) InsertQuestion(ctx context.Context, sessionID, studentID uuid.UUID, content string, anonymous bool) (*models.Question, error) {
	var q models.Question
	err := s.db.QueryRow(ctx,
		`INSERT INTO questions (session_id, student_id, content, is_anonymous)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, session_id, student_id, content, asked_at, is_anonymous, is_published, review_label, review_notes`,
		sessionID, studentID, content, anonymous,
	).Scan(&q.ID, &q.SessionID, &q.StudentID, &q.Content, &q.AskedAt,
		&q.IsAnonymous, &q.IsPublished, &q.ReviewLabel, &q.ReviewNotes)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}
	return &q, nil
}

func (s *Store) InsertAnswer(ctx context.Context, questionID uuid.UUID, content, modelUsed string, latencyMs int64) (*models.Answer, error) {
	var a models.Answer
	err := s.db.QueryRow(ctx,
		`INSERT INTO answers (question_id, content, model_used, generation_latency_ms)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, question_id, content, model_used, generation_latency_ms, created_at`,
		questionID, content, modelUsed, latencyMs,
	).Scan(&a.ID, &a.QuestionID, &a.Content, &a.ModelUsed, &a.GenerationLatencyMs, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert answer: %w", err)
	}
	return &a, nil
}

func (s *Store) InsertCitation(ctx context.Context, answerID, chunkID uuid.UUID, score float64, order int) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO answer_citations (answer_id, chunk_id, relevance_score, citation_order)
		 VALUES ($1, $2, $3, $4)`,
		answerID, chunkID, score, order)
	if err != nil {
		return fmt.Errorf("insert citation %d: %w", order, err)
	}
	return nil
}

// UpsertFeedback records one student's vote on an answer. A later vote from
// the same student replaces the earlier one, timestamp included.
func (s *Store) UpsertFeedback(ctx context.Context, answerID, studentID uuid.UUID, value string) error {
	if value != models.FeedbackUp && value != models.FeedbackDown {
		return fmt.Errorf("%w: feedback must be %q or %q", models.ErrValidation, models.FeedbackUp, models.FeedbackDown)
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO answer_feedback (answer_id, student_id, feedback, voted_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (answer_id, student_id)
		 DO UPDATE SET feedback = EXCLUDED.feedback, voted_at = now()`,
		answerID, studentID, value)
	if err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}

func (s *Store) SetPublished(ctx context.Context, questionID, studentID uuid.UUID, published bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE questions SET is_published = $3 WHERE id = $1 AND student_id = $2`,
		questionID, studentID, published)
	if err != nil {
		return fmt.Errorf("update publication flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateReview(ctx context.Context, questionID uuid.UUID, label, notes *string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE questions SET review_label = $2, review_notes = $3 WHERE id = $1`,
		questionID, label, notes)
	if err != nil {
		return fmt.Errorf("update review metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountQuestions counts a session's eligible questions, the report cache's
// staleness signal.
func (s *Store) CountQuestions(ctx context.Context, sessionID uuid.UUID, publishedOnly bool) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE session_id = $1 AND ($2 = false OR is_published = true)`,
		sessionID, publishedOnly,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

// ListSessionQuestions returns a session's questions in asked order, each
// with its answer, rank-ordered citations and feedback tally resolved.
func (s *Store) ListSessionQuestions(ctx context.Context, sessionID uuid.UUID, publishedOnly bool) ([]QuestionRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT q.id, q.session_id, q.student_id, q.content, q.asked_at,
		        q.is_anonymous, q.is_published, q.review_label, q.review_notes,
		        a.id, a.content, a.model_used, a.generation_latency_ms, a.created_at,
		        COALESCE((SELECT COUNT(*) FROM answer_feedback af
		                  WHERE af.answer_id = a.id AND af.feedback = 'up'), 0),
		        COALESCE((SELECT COUNT(*) FROM answer_feedback af
		                  WHERE af.answer_id = a.id AND af.feedback = 'down'), 0)
		 FROM questions q
		 LEFT JOIN answers a ON a.question_id = q.id
		 WHERE q.session_id = $1 AND ($2 = false OR q.is_published = true)
		 ORDER BY q.asked_at ASC`,
		sessionID, publishedOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list session questions: %w", err)
	}
	defer rows.Close()

	var records []QuestionRecord
	for rows.Next() {
		var rec QuestionRecord
		var answerID *uuid.UUID
		var answerContent, modelUsed *string
		var latencyMs *int64
		var createdAt *time.Time
		var up, down int
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Content, &rec.AskedAt,
			&rec.IsAnonymous, &rec.IsPublished, &rec.ReviewLabel, &rec.ReviewNotes,
			&answerID, &answerContent, &modelUsed, &latencyMs, &createdAt,
			&up, &down); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}

		if answerID != nil {
			view := &models.AnswerView{
				Answer: models.Answer{
					ID:         *answerID,
					QuestionID: rec.ID,
					Content:    deref(answerContent),
					ModelUsed:  deref(modelUsed),
				},
			}
			if latencyMs != nil {
				view.GenerationLatencyMs = *latencyMs
			}
			if createdAt != nil {
				view.CreatedAt = *createdAt
			}
			rec.Answer = view
			rec.Feedback = &models.FeedbackTally{
				ThumbsUp:       up,
				ThumbsDown:     down,
				NeedsAttention: down > up,
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].Answer == nil {
			continue
		}
		citations, err := s.CitationsForAnswer(ctx, records[i].Answer.ID)
		if err != nil {
			return nil, err
		}
		records[i].Answer.Citations = citations
	}

	return records, nil
}

// CitationsForAnswer returns an answer's citations in ascending citation
// order with their chunk content resolved.
func (s *Store) CitationsForAnswer(ctx context.Context, answerID uuid.UUID) ([]models.Citation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT ac.chunk_id, dc.content, dc.page_number, ac.relevance_score, ac.citation_order
		 FROM answer_citations ac
		 JOIN document_chunks dc ON dc.id = ac.chunk_id
		 WHERE ac.answer_id = $1
		 ORDER BY ac.citation_order`,
		answerID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch citations: %w", err)
	}
	defer rows.Close()

	var citations []models.Citation
	for rows.Next() {
		var c models.Citation
		if err := rows.Scan(&c.ChunkID, &c.Content, &c.PageNumber, &c.RelevanceScore, &c.CitationOrder); err != nil {
			return nil, fmt.Errorf("scan citation: %w", err)
		}
		citations = append(citations, c)
	}
	return citations, rows.Err()
}

// ListStudentQuestions returns one student's own Q&A history for a session.
func (s *Store) ListStudentQuestions(ctx context.Context, sessionID, studentID uuid.UUID) ([]QuestionRecord, error) {
	records, err := s.ListSessionQuestions(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}
	var own []QuestionRecord
	for _, r := range records {
		if r.StudentID == studentID {
			own = append(own, r)
		}
	}
	return own, nil
}

func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRow(ctx,
		`SELECT id, course_id, title, status, started_at, ended_at FROM sessions WHERE id = $1`,
		id,
	).Scan(&sess.ID, &sess.CourseID, &sess.Title, &sess.Status, &sess.StartedAt, &sess.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (s *Store) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE sessions SET status = $2,
		        started_at = CASE WHEN $2 = 'active' AND started_at IS NULL THEN now() ELSE started_at END,
		        ended_at   = CASE WHEN $2 = 'ended' THEN now() ELSE ended_at END
		 WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) IsEnrolled(ctx context.Context, courseID, studentID uuid.UUID) (bool, error) {
	var enrolled bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM course_enrollments WHERE course_id = $1 AND student_id = $2)`,
		courseID, studentID,
	).Scan(&enrolled)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return enrolled, nil
}

func (s *Store) CourseOwnedBy(ctx context.Context, courseID, professorID uuid.UUID) (bool, error) {
	var owned bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1 AND professor_id = $2)`,
		courseID, professorID,
	).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("check course ownership: %w", err)
	}
	return owned, nil
}

// SessionForAnswer resolves the session an answer belongs to, used to
// invalidate the right report cache entries on feedback.
func (s *Store) SessionForAnswer(ctx context.Context, answerID uuid.UUID) (uuid.UUID, error) {
	var sessionID uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT q.session_id FROM answers a JOIN questions q ON q.id = a.question_id WHERE a.id = $1`,
		answerID,
	).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, models.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve answer session: %w", err)
	}
	return sessionID, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
