// Package rag answers one student question grounded in the session's
// course materials, with ranked citations as provenance.
package rag

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/askclass/backend/internal/models"
	"github.com/askclass/backend/internal/vectorstore"
)

const citationTopK = 5

type QuestionStore interface {
	InsertQuestion(ctx context.Context, sessionID, studentID uuid.UUID, content string, anonymous bool) (*models.Question, error)
	InsertAnswer(ctx context.Context, questionID uuid.UUID, content, modelUsed string, latencyMs int64) (*models.Answer, error)
	InsertCitation(ctx context.Context, answerID, chunkID uuid.UUID, score float64, order int) error
}

type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// Completer is the completion client: system prompt plus user message in,
// generated text and call latency out.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, int64, error)
}

type AskRequest struct {
	SessionID   uuid.UUID
	StudentID   uuid.UUID
	Content     string
	Personality string
	Anonymous   bool
}

type Pipeline struct {
	questions QuestionStore
	store     vectorstore.Store
	embedder  Embedder
	completer Completer
	chatModel string
}

func NewPipeline(questions QuestionStore, store vectorstore.Store, embedder Embedder, completer Completer, chatModel string) *Pipeline {
	return &Pipeline{
		questions: questions,
		store:     store,
		embedder:  embedder,
		completer: completer,
		chatModel: chatModel,
	}
}

// Answer runs the full pipeline for one question. Steps are strictly
// sequential; the question is persisted first so it survives any later
// failure, and every failure after that aborts the operation with the
// question row intact.
func (p *Pipeline) Answer(ctx context.Context, req AskRequest) (*models.QuestionView, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: question content required", models.ErrValidation)
	}

	question, err := p.questions.InsertQuestion(ctx, req.SessionID, req.StudentID, req.Content, req.Anonymous)
	if err != nil {
		return nil, fmt.Errorf("persist question: %w", err)
	}

	queryVec, err := p.embedder.EmbedSingle(ctx, req.Content)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	activeDocs, err := p.store.ActiveDocumentIDs(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve active documents: %w", err)
	}

	// Full grounding context: every chunk of every active document, plus
	// raw content of active documents that chunked to nothing.
	grounding, err := p.store.SessionGrounding(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch grounding: %w", err)
	}
	chunkless, err := p.store.ChunklessActiveContent(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch chunkless content: %w", err)
	}
	grounding = append(grounding, chunkless...)

	// The citation set is a separate, ranked top-K search, not the
	// grounding context.
	var hits []vectorstore.SearchResult
	if len(activeDocs) > 0 {
		hits, err = p.store.SimilaritySearch(ctx, activeDocs, queryVec, citationTopK)
		if err != nil {
			return nil, fmt.Errorf("similarity search: %w", err)
		}
	}

	systemPrompt := buildSystemPrompt(req.Personality, grounding)

	answerText, latencyMs, err := p.completer.Complete(ctx, systemPrompt, req.Content)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	answer, err := p.questions.InsertAnswer(ctx, question.ID, answerText, p.chatModel, latencyMs)
	if err != nil {
		return nil, fmt.Errorf("persist answer: %w", err)
	}

	citations := make([]models.Citation, 0, len(hits))
	for i, hit := range hits {
		// Rank on the unrounded score; round only for display.
		if err := p.questions.InsertCitation(ctx, answer.ID, hit.ChunkID, hit.Score, i+1); err != nil {
			return nil, fmt.Errorf("persist citation: %w", err)
		}
		citations = append(citations, models.Citation{
			ChunkID:        hit.ChunkID,
			Content:        hit.Content,
			PageNumber:     hit.PageNumber,
			RelevanceScore: roundScore(hit.Score),
			CitationOrder:  i + 1,
		})
	}

	return &models.QuestionView{
		Question: *question,
		Answer: &models.AnswerView{
			Answer:    *answer,
			Citations: citations,
		},
	}, nil
}

func roundScore(s float64) float64 {
	return math.Round(s*10000) / 10000
}
