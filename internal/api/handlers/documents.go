package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/askclass/backend/internal/auth"
	"github.com/askclass/backend/internal/document"
	"github.com/askclass/backend/internal/qa"
	"github.com/askclass/backend/internal/queue"
	"github.com/askclass/backend/pkg/textextract"
)

// DocumentHandler serves the professor's material surface: uploads,
// pasted text, session links and processing status.
type DocumentHandler struct {
	docs      *document.Service
	store     *qa.Store
	queue     *queue.Client
	uploadDir string
}

func NewDocumentHandler(docs *document.Service, store *qa.Store, qc *queue.Client, uploadDir string) *DocumentHandler {
	return &DocumentHandler{docs: docs, store: store, queue: qc, uploadDir: uploadDir}
}

// Upload accepts a course material file, stores it locally and queues
// ingestion. Responds 202: chunking and embedding happen in the worker.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(textextract.MaxFileSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	courseID, err := uuid.Parse(r.FormValue("course_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid course ID"})
		return
	}
	if !h.ownsCourse(w, r, courseID) {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	if !textextract.Supported(header.Filename) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported file type, use .pdf, .docx or .txt"})
		return
	}
	if header.Size > textextract.MaxFileSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file exceeds the 10 MB limit"})
		return
	}

	storagePath, err := h.saveUpload(file, header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.docs.Create(r.Context(), document.CreateRequest{
		CourseID:    courseID,
		Filename:    header.Filename,
		StoragePath: storagePath,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.queue.EnqueueDocumentIngest(queue.DocumentIngestPayload{DocumentID: doc.ID.String()}); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

type createTextRequest struct {
	CourseID uuid.UUID `json:"course_id"`
	Filename string    `json:"filename"`
	Content  string    `json:"content"`
}

// CreateText registers pasted inline material and queues ingestion.
func (h *DocumentHandler) CreateText(w http.ResponseWriter, r *http.Request) {
	var req createTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !h.ownsCourse(w, r, req.CourseID) {
		return
	}

	doc, err := h.docs.Create(r.Context(), document.CreateRequest{
		CourseID:    req.CourseID,
		Filename:    req.Filename,
		ContentText: req.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.queue.EnqueueDocumentIngest(queue.DocumentIngestPayload{DocumentID: doc.ID.String()}); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(chi.URLParam(r, "courseID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid course ID"})
		return
	}
	if !h.ownsCourse(w, r, courseID) {
		return
	}

	docs, err := h.docs.ListByCourse(r.Context(), courseID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	doc, err := h.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": doc.ID.String(), "status": doc.ProcessingStatus})
}

// Link attaches a document to a session and activates it for retrieval.
func (h *DocumentHandler) Link(w http.ResponseWriter, r *http.Request) {
	sessionID, documentID, ok := h.linkParams(w, r)
	if !ok {
		return
	}

	if err := h.docs.LinkToSession(r.Context(), sessionID, documentID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}

type linkActiveRequest struct {
	Active bool `json:"active"`
}

// SetLinkActive toggles whether a linked document participates in
// retrieval for the session.
func (h *DocumentHandler) SetLinkActive(w http.ResponseWriter, r *http.Request) {
	sessionID, documentID, ok := h.linkParams(w, r)
	if !ok {
		return
	}

	var req linkActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.docs.SetLinkActive(r.Context(), sessionID, documentID, req.Active); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

func (h *DocumentHandler) linkParams(w http.ResponseWriter, r *http.Request) (sessionID, documentID uuid.UUID, ok bool) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return uuid.Nil, uuid.Nil, false
	}
	documentID, err = uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return uuid.Nil, uuid.Nil, false
	}

	session, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return uuid.Nil, uuid.Nil, false
	}
	if !h.ownsCourse(w, r, session.CourseID) {
		return uuid.Nil, uuid.Nil, false
	}
	return sessionID, documentID, true
}

func (h *DocumentHandler) ownsCourse(w http.ResponseWriter, r *http.Request, courseID uuid.UUID) bool {
	actor := auth.ActorFromContext(r.Context())
	owned, err := h.store.CourseOwnedBy(r.Context(), courseID, actor.ID)
	if err != nil {
		writeError(w, err)
		return false
	}
	if !owned {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "course not owned by caller"})
		return false
	}
	return true
}

// saveUpload writes the file under a fresh name so repeated uploads of
// the same filename never collide.
func (h *DocumentHandler) saveUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(h.uploadDir, uuid.NewString()+filepath.Ext(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}
