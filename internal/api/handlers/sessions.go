package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/askclass/backend/internal/auth"
	"github.com/askclass/backend/internal/cache"
	"github.com/askclass/backend/internal/models"
	"github.com/askclass/backend/internal/qa"
	"github.com/askclass/backend/internal/report"
)

var validTransitions = map[string][]string{
	models.SessionStatusScheduled: {models.SessionStatusActive},
	models.SessionStatusActive:    {models.SessionStatusEnded},
	models.SessionStatusEnded:     {models.SessionStatusReleased},
}

// SessionHandler serves the professor's session surface: lifecycle,
// dashboard report and question review.
type SessionHandler struct {
	store      *qa.Store
	aggregator *report.Aggregator
	sessions   *cache.Cache
}

func NewSessionHandler(store *qa.Store, aggregator *report.Aggregator, sessions *cache.Cache) *SessionHandler {
	return &SessionHandler{store: store, aggregator: aggregator, sessions: sessions}
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus advances the session through its lifecycle
// (scheduled -> active -> ended -> released) and drops the cached session
// record so the question gate sees the change immediately.
func (h *SessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !transitionAllowed(session.Status, req.Status) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "cannot transition from " + session.Status + " to " + req.Status,
		})
		return
	}

	if err := h.store.UpdateSessionStatus(r.Context(), session.ID, req.Status); err != nil {
		writeError(w, err)
		return
	}

	if err := h.sessions.Delete(r.Context(), cache.SessionKey(session.ID.String())); err != nil {
		// The short TTL bounds staleness if the delete fails.
		writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// Report serves the professor dashboard report with review metadata.
// ?published_only=true restricts it to the student-visible question set.
func (h *SessionHandler) Report(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	publishedOnly := r.URL.Query().Get("published_only") == "true"

	rep, err := h.aggregator.BuildReport(r.Context(), session.ID, publishedOnly, true)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

type reviewRequest struct {
	Label *string `json:"label"`
	Notes *string `json:"notes"`
}

// Review attaches or clears the professor's label and notes on a question
// and invalidates the cached report that carries them.
func (h *SessionHandler) Review(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	questionID, err := uuid.Parse(chi.URLParam(r, "questionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid question ID"})
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.store.UpdateReview(r.Context(), questionID, req.Label, req.Notes); err != nil {
		writeError(w, err)
		return
	}

	h.aggregator.InvalidateSession(session.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Questions lists the session's raw Q&A for the professor, unfiltered.
func (h *SessionHandler) Questions(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	records, err := h.store.ListSessionQuestions(r.Context(), session.ID, false)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"questions": records, "count": len(records)})
}

// ownedSession resolves the routed session and checks the caller owns its
// course.
func (h *SessionHandler) ownedSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	actor := auth.ActorFromContext(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return nil, false
	}

	session, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}

	owned, err := h.store.CourseOwnedBy(r.Context(), session.CourseID, actor.ID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if !owned {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "session not owned by caller"})
		return nil, false
	}
	return session, true
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if to == allowed {
			return true
		}
	}
	return false
}
