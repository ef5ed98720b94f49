package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sensaur/sensaur-hub/internal/hub"
)

// componentResponse is the JSON representation of a component.
type componentResponse struct {
	Name        string `json:"name"`
	DeviceIndex int    `json:"device_index"`
	DeviceID    string `json:"device_id"`
	Direction   string `json:"direction"`
	Type        string `json:"type"`
	Model       string `json:"model,omitempty"`
	Units       string `json:"units,omitempty"`
	OutputValue string `json:"output_value,omitempty"`
}

// deviceResponse is the JSON representation of a device.
type deviceResponse struct {
	Index      int                 `json:"index"`
	ID         string              `json:"id"`
	Ready      bool                `json:"ready"`
	LastSeen   time.Time           `json:"last_seen"`
	Components []componentResponse `json:"components"`
}

func toComponentResponse(c hub.ComponentInfo) componentResponse {
	resp := componentResponse{
		Name:        c.Name,
		DeviceIndex: c.DeviceIndex,
		DeviceID:    c.DeviceID,
		Direction:   c.Dir.String(),
		Type:        c.Type,
		Model:       c.Model,
		Units:       c.Units,
	}
	if c.Dir == hub.Out {
		resp.OutputValue = c.OutputValue
	}
	return resp
}

func toDeviceResponse(d hub.DeviceInfo) deviceResponse {
	components := make([]componentResponse, 0, len(d.Components))
	for _, c := range d.Components {
		components = append(components, toComponentResponse(c))
	}
	return deviceResponse{
		Index:      d.Index,
		ID:         d.ID,
		Ready:      d.Ready,
		LastSeen:   d.LastSeen,
		Components: components,
	}
}

// handleListDevices returns all currently-known devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.hub.Registry().Devices()
	resp := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		resp = append(resp, toDeviceResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": resp,
		"count":   len(resp),
	})
}

// handleGetDevice returns a single device by its protocol index.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeBadRequest(w, "device index must be a non-negative integer")
		return
	}

	d, ok := s.hub.Registry().Device(index)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, toDeviceResponse(d))
}

// handleListComponents returns all components across all devices.
func (s *Server) handleListComponents(w http.ResponseWriter, _ *http.Request) {
	components := s.hub.Registry().Components()
	resp := make([]componentResponse, 0, len(components))
	for _, c := range components {
		resp = append(resp, toComponentResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"components": resp,
		"count":      len(resp),
	})
}

// handleHealth returns the server health status and hub counters.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.hub.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"hub": map[string]any{
			"devices":           stats.DeviceCount,
			"lines_received":    stats.LinesRx,
			"lines_sent":        stats.LinesTx,
			"checksum_errors":   stats.ChecksumErrors,
			"frames_dropped":    stats.FramesDropped,
			"values_dispatched": stats.ValuesDispatched,
			"devices_evicted":   stats.DevicesEvicted,
		},
	})
}
