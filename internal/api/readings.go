package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListReadings returns recent stored readings for one component,
// newest first. Requires the history store to be enabled.
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "reading history is disabled")
		return
	}

	name := chi.URLParam(r, "name")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	readings, err := s.history.GetReadings(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("querying readings failed", "component", name, "error", err)
		writeInternalError(w, "failed to query readings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"component": name,
		"readings":  readings,
		"count":     len(readings),
	})
}
