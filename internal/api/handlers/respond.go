package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/askclass/backend/internal/llm"
	"github.com/askclass/backend/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps the error taxonomy to HTTP statuses: validation 400,
// not found 404, provider failures 502, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case llm.IsProviderError(err):
		slog.Error("provider failure", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "AI provider unavailable"})
	default:
		slog.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
