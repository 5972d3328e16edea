package models

import (
	"time"

	"github.com/google/uuid"
)

// Question is immutable once created except for the publication flag and
// professor review metadata.
type Question struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	StudentID   uuid.UUID `json:"student_id"`
	Content     string    `json:"content"`
	AskedAt     time.Time `json:"asked_at"`
	IsAnonymous bool      `json:"is_anonymous"`
	IsPublished bool      `json:"is_published"`
	ReviewLabel *string   `json:"review_label,omitempty"`
	ReviewNotes *string   `json:"review_notes,omitempty"`
}

// Answer is the single generated response to a question. Created once,
// never edited.
type Answer struct {
	ID                  uuid.UUID `json:"id"`
	QuestionID          uuid.UUID `json:"question_id"`
	Content             string    `json:"content"`
	ModelUsed           string    `json:"model_used"`
	GenerationLatencyMs int64     `json:"generation_latency_ms"`
	CreatedAt           time.Time `json:"created_at"`
}

// Citation links an answer to a chunk that supported it, in retrieval rank
// order. RelevanceScore is cosine similarity, rounded to 4 decimals for
// display; ranking uses the unrounded value.
type Citation struct {
	ChunkID        uuid.UUID `json:"chunk_id"`
	Content        string    `json:"content"`
	PageNumber     *int      `json:"page_number,omitempty"`
	RelevanceScore float64   `json:"relevance_score"`
	CitationOrder  int       `json:"citation_order"` // 1-based
}

const (
	FeedbackUp   = "up"
	FeedbackDown = "down"
)

// Feedback is one student's vote on an answer; at most one row per
// (answer, student), later votes overwrite earlier ones.
type Feedback struct {
	AnswerID  uuid.UUID `json:"answer_id"`
	StudentID uuid.UUID `json:"student_id"`
	Value     string    `json:"value"`
	VotedAt   time.Time `json:"voted_at"`
}

type FeedbackTally struct {
	ThumbsUp       int  `json:"thumbs_up"`
	ThumbsDown     int  `json:"thumbs_down"`
	NeedsAttention bool `json:"needs_attention"`
}

// AnswerView is an answer with its citations resolved in rank order.
type AnswerView struct {
	Answer
	Citations []Citation `json:"citations"`
}

// QuestionView is the fully assembled question returned by the answer
// pipeline and the report aggregator.
type QuestionView struct {
	Question
	Answer *AnswerView `json:"answer,omitempty"`
}
