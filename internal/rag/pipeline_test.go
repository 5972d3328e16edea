package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/askclass/backend/internal/models"
	"github.com/askclass/backend/internal/vectorstore"
)

type stubQuestionStore struct {
	question    *models.Question
	answer      *models.Answer
	citations   []struct {
		chunkID uuid.UUID
		score   float64
		order   int
	}
	answerErr error
}

func (s *stubQuestionStore) InsertQuestion(_ context.Context, sessionID, studentID uuid.UUID, content string, anonymous bool) (*models.Question, error) {
	s.question = &models.Question{
		ID:          uuid.New(),
		SessionID:   sessionID,
		StudentID:   studentID,
		Content:     content,
		AskedAt:     time.Now(),
		IsAnonymous: anonymous,
		IsPublished: true,
	}
	return s.question, nil
}

func (s *stubQuestionStore) InsertAnswer(_ context.Context, questionID uuid.UUID, content, modelUsed string, latencyMs int64) (*models.Answer, error) {
	if s.answerErr != nil {
		return nil, s.answerErr
	}
	s.answer = &models.Answer{
		ID:                  uuid.New(),
		QuestionID:          questionID,
		Content:             content,
		ModelUsed:           modelUsed,
		GenerationLatencyMs: latencyMs,
	}
	return s.answer, nil
}

func (s *stubQuestionStore) InsertCitation(_ context.Context, _, chunkID uuid.UUID, score float64, order int) error {
	s.citations = append(s.citations, struct {
		chunkID uuid.UUID
		score   float64
		order   int
	}{chunkID, score, order})
	return nil
}

type stubVectorStore struct {
	activeDocs []uuid.UUID
	grounding  []vectorstore.GroundingSource
	chunkless  []vectorstore.GroundingSource
	hits       []vectorstore.SearchResult
	searched   bool
}

func (s *stubVectorStore) InsertChunk(_ context.Context, _ models.DocumentChunk) error { return nil }

func (s *stubVectorStore) SimilaritySearch(_ context.Context, _ []uuid.UUID, _ []float32, topK int) ([]vectorstore.SearchResult, error) {
	s.searched = true
	if len(s.hits) > topK {
		return s.hits[:topK], nil
	}
	return s.hits, nil
}

func (s *stubVectorStore) SessionGrounding(_ context.Context, _ uuid.UUID) ([]vectorstore.GroundingSource, error) {
	return s.grounding, nil
}

func (s *stubVectorStore) ChunklessActiveContent(_ context.Context, _ uuid.UUID) ([]vectorstore.GroundingSource, error) {
	return s.chunkless, nil
}

func (s *stubVectorStore) ActiveDocumentIDs(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return s.activeDocs, nil
}

type stubEmbedder struct{ err error }

func (s *stubEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.5, 0.5}, nil
}

type capturingCompleter struct {
	systemPrompt string
	userMessage  string
	reply        string
	err          error
}

func (c *capturingCompleter) Complete(_ context.Context, systemPrompt, userMessage string) (string, int64, error) {
	c.systemPrompt = systemPrompt
	c.userMessage = userMessage
	if c.err != nil {
		return "", 0, c.err
	}
	return c.reply, 42, nil
}

func intPtr(i int) *int { return &i }

func TestAnswerNoActiveDocuments(t *testing.T) {
	questions := &stubQuestionStore{}
	store := &stubVectorStore{}
	completer := &capturingCompleter{reply: "No materials are available right now."}
	p := NewPipeline(questions, store, &stubEmbedder{}, completer, "gpt-4o")

	view, err := p.Answer(context.Background(), AskRequest{
		SessionID:   uuid.New(),
		StudentID:   uuid.New(),
		Content:     "what is backpropagation?",
		Personality: PersonalityNormal,
	})
	require.NoError(t, err)

	require.Empty(t, view.Answer.Citations, "no active documents means no citations")
	require.False(t, store.searched, "similarity search must be skipped without active documents")
	require.Contains(t, completer.systemPrompt, "No course materials are currently available")
	require.NotContains(t, completer.systemPrompt, "--- Course Materials ---")
	require.Equal(t, "what is backpropagation?", completer.userMessage)
}

func TestAnswerGroundedPromptAndCitations(t *testing.T) {
	docID := uuid.New()
	chunkA, chunkB, chunkC := uuid.New(), uuid.New(), uuid.New()

	questions := &stubQuestionStore{}
	store := &stubVectorStore{
		activeDocs: []uuid.UUID{docID},
		grounding: []vectorstore.GroundingSource{
			{Filename: "lecture3.pdf", PageNumber: intPtr(2), Content: "Gradient descent updates weights."},
			{Filename: "lecture3.pdf", PageNumber: intPtr(3), Content: "The learning rate scales each step."},
		},
		hits: []vectorstore.SearchResult{
			{ChunkID: chunkA, DocumentID: docID, Content: "Gradient descent updates weights.", Score: 0.91237},
			{ChunkID: chunkB, DocumentID: docID, Content: "The learning rate scales each step.", Score: 0.8712},
			{ChunkID: chunkC, DocumentID: docID, Content: "Momentum smooths updates.", Score: 0.55},
		},
	}
	completer := &capturingCompleter{reply: "Gradient descent minimizes loss iteratively."}
	p := NewPipeline(questions, store, &stubEmbedder{}, completer, "gpt-4o")

	view, err := p.Answer(context.Background(), AskRequest{
		SessionID:   uuid.New(),
		StudentID:   uuid.New(),
		Content:     "how does gradient descent work?",
		Personality: PersonalitySupportive,
	})
	require.NoError(t, err)

	require.Contains(t, completer.systemPrompt, "--- Course Materials ---")
	require.Contains(t, completer.systemPrompt, "[lecture3.pdf, page 2]")
	require.Contains(t, completer.systemPrompt, "ONLY the following course materials")

	require.Len(t, view.Answer.Citations, 3)
	for i, c := range view.Answer.Citations {
		require.Equal(t, i+1, c.CitationOrder, "citation order must be 1-based ascending")
	}
	require.Equal(t, 0.9124, view.Answer.Citations[0].RelevanceScore, "display score rounded to 4 decimals")
	require.InDelta(t, 0.91237, questions.citations[0].score, 1e-9, "stored score must be unrounded")
	require.Equal(t, "gpt-4o", view.Answer.ModelUsed)
	require.Equal(t, int64(42), view.Answer.GenerationLatencyMs)

	// Descending similarity matches ascending citation order.
	for i := 1; i < len(view.Answer.Citations); i++ {
		require.GreaterOrEqual(t,
			view.Answer.Citations[i-1].RelevanceScore,
			view.Answer.Citations[i].RelevanceScore)
	}
}

func TestAnswerChunklessContentReachesPrompt(t *testing.T) {
	questions := &stubQuestionStore{}
	store := &stubVectorStore{
		activeDocs: []uuid.UUID{uuid.New()},
		chunkless: []vectorstore.GroundingSource{
			{Filename: "syllabus-note.txt", Content: "Midterm covers lectures 1 through 5."},
		},
	}
	completer := &capturingCompleter{reply: "ok"}
	p := NewPipeline(questions, store, &stubEmbedder{}, completer, "gpt-4o")

	_, err := p.Answer(context.Background(), AskRequest{
		SessionID: uuid.New(),
		StudentID: uuid.New(),
		Content:   "what does the midterm cover?",
	})
	require.NoError(t, err)
	require.Contains(t, completer.systemPrompt, "syllabus-note.txt")
	require.Contains(t, completer.systemPrompt, "Midterm covers lectures 1 through 5.")
}

func TestAnswerQuestionSurvivesGenerationFailure(t *testing.T) {
	questions := &stubQuestionStore{}
	store := &stubVectorStore{}
	completer := &capturingCompleter{err: errors.New("quota exceeded")}
	p := NewPipeline(questions, store, &stubEmbedder{}, completer, "gpt-4o")

	_, err := p.Answer(context.Background(), AskRequest{
		SessionID: uuid.New(),
		StudentID: uuid.New(),
		Content:   "anything",
	})
	require.Error(t, err)
	require.NotNil(t, questions.question, "question must be persisted before generation")
	require.Nil(t, questions.answer, "no answer row after a failed generation")
}

func TestAnswerRejectsEmptyContent(t *testing.T) {
	questions := &stubQuestionStore{}
	p := NewPipeline(questions, &stubVectorStore{}, &stubEmbedder{}, &capturingCompleter{}, "gpt-4o")

	_, err := p.Answer(context.Background(), AskRequest{
		SessionID: uuid.New(),
		StudentID: uuid.New(),
		Content:   "   ",
	})
	require.ErrorIs(t, err, models.ErrValidation)
	require.Nil(t, questions.question, "no partial state on validation failure")
}

func TestPersonalityInstructionFallsBackToNormal(t *testing.T) {
	prompt := buildSystemPrompt("pirate", nil)
	require.True(t, strings.Contains(prompt, personalityInstructions[PersonalityNormal]))
}
