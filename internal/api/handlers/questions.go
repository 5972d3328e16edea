package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/askclass/backend/internal/auth"
	"github.com/askclass/backend/internal/cache"
	"github.com/askclass/backend/internal/models"
	"github.com/askclass/backend/internal/qa"
	"github.com/askclass/backend/internal/rag"
	"github.com/askclass/backend/internal/report"
)

const sessionCacheTTL = 30 * time.Second

// QuestionHandler serves the student surface: asking, history, feedback,
// publication and the released class report.
type QuestionHandler struct {
	store      *qa.Store
	pipeline   *rag.Pipeline
	aggregator *report.Aggregator
	sessions   *cache.Cache
}

func NewQuestionHandler(store *qa.Store, pipeline *rag.Pipeline, aggregator *report.Aggregator, sessions *cache.Cache) *QuestionHandler {
	return &QuestionHandler{
		store:      store,
		pipeline:   pipeline,
		aggregator: aggregator,
		sessions:   sessions,
	}
}

type askRequest struct {
	Content     string `json:"content"`
	Personality string `json:"personality"`
	Anonymous   bool   `json:"anonymous"`
}

// Ask runs the answer pipeline for one question. The session must be
// active and the student enrolled before anything is persisted.
func (h *QuestionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	session, err := h.session(r, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if session.Status != models.SessionStatusActive {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session is not accepting questions"})
		return
	}

	enrolled, err := h.store.IsEnrolled(r.Context(), session.CourseID, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !enrolled {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not enrolled in this course"})
		return
	}

	view, err := h.pipeline.Answer(r.Context(), rag.AskRequest{
		SessionID:   sessionID,
		StudentID:   actor.ID,
		Content:     req.Content,
		Personality: req.Personality,
		Anonymous:   req.Anonymous,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// MyQuestions returns the caller's own Q&A history for a session.
func (h *QuestionHandler) MyQuestions(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	records, err := h.store.ListStudentQuestions(r.Context(), sessionID, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"questions": records, "count": len(records)})
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

// Feedback records a thumbs up/down vote and invalidates the session's
// cached report, whose attention flags depend on the tallies.
func (h *QuestionHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	answerID, err := uuid.Parse(chi.URLParam(r, "answerID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid answer ID"})
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sessionID, err := h.store.SessionForAnswer(r.Context(), answerID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.UpsertFeedback(r.Context(), answerID, actor.ID, req.Feedback); err != nil {
		writeError(w, err)
		return
	}

	h.aggregator.InvalidateSession(sessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type publicationRequest struct {
	Published bool `json:"published"`
}

// SetPublication toggles whether the caller's question appears in the
// class-wide report. Only the asking student may change it.
func (h *QuestionHandler) SetPublication(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	questionID, err := uuid.Parse(chi.URLParam(r, "questionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid question ID"})
		return
	}

	var req publicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.store.SetPublished(r.Context(), questionID, actor.ID, req.Published); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"published": req.Published})
}

// ClassReport serves the student-facing report: released sessions only,
// published questions only, review metadata stripped.
func (h *QuestionHandler) ClassReport(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	session, err := h.session(r, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if session.Status != models.SessionStatusReleased {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "report not released yet"})
		return
	}

	enrolled, err := h.store.IsEnrolled(r.Context(), session.CourseID, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !enrolled {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not enrolled in this course"})
		return
	}

	rep, err := h.aggregator.BuildReport(r.Context(), sessionID, true, false)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// session resolves a session record through the redis lookaside cache.
// Status changes invalidate the key, so a short TTL only bounds drift for
// out-of-band database edits.
func (h *QuestionHandler) session(r *http.Request, sessionID uuid.UUID) (*models.Session, error) {
	key := cache.SessionKey(sessionID.String())

	var cached models.Session
	if err := h.sessions.Get(r.Context(), key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		// Redis trouble degrades to a database read.
		session, dbErr := h.store.GetSession(r.Context(), sessionID)
		if dbErr != nil {
			return nil, dbErr
		}
		return session, nil
	}

	session, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		return nil, err
	}
	_ = h.sessions.Set(r.Context(), key, session, sessionCacheTTL)
	return session, nil
}
