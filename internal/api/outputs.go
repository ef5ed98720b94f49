package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sensaur/sensaur-hub/internal/hub"
)

// setOutputRequest is the body of PUT /components/{name}/output.
type setOutputRequest struct {
	Value string `json:"value"`
}

// handleSetOutput sets the stored value of an output component and pushes
// the full output frame to the owning device.
func (s *Server) handleSetOutput(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req setOutputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	value := strings.TrimSpace(req.Value)
	if value == "" {
		writeBadRequest(w, "value is required")
		return
	}

	component, err := s.hub.SetOutputValue(name, value)
	if err != nil {
		switch {
		case errors.Is(err, hub.ErrComponentNotFound):
			writeNotFound(w, "component not found")
		case errors.Is(err, hub.ErrNotOutput):
			writeConflict(w, "component is not an output")
		default:
			s.logger.Error("setting output failed", "component", name, "error", err)
			writeInternalError(w, "failed to send output frame")
		}
		return
	}

	writeJSON(w, http.StatusOK, toComponentResponse(component))
}
