package bridge

import (
	"time"

	"github.com/sensaur/sensaur-hub/internal/hub"
)

// HealthStatus describes the bridge's operating state.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStopping HealthStatus = "stopping"
)

// ReadingMessage is the JSON payload published for each sensor reading.
type ReadingMessage struct {
	DeviceID  string `json:"device_id"`
	Component string `json:"component"`
	Type      string `json:"type"`
	Units     string `json:"units,omitempty"`
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"`
}

// HealthMessage is the JSON payload published to the health topic.
type HealthMessage struct {
	Status           HealthStatus `json:"status"`
	Version          string       `json:"version,omitempty"`
	UptimeSeconds    int64        `json:"uptime_seconds"`
	Devices          int          `json:"devices"`
	LinesReceived    uint64       `json:"lines_received"`
	LinesSent        uint64       `json:"lines_sent"`
	ChecksumErrors   uint64       `json:"checksum_errors"`
	FramesDropped    uint64       `json:"frames_dropped"`
	ValuesDispatched uint64       `json:"values_dispatched"`
	DevicesEvicted   uint64       `json:"devices_evicted"`
	Timestamp        string       `json:"timestamp"`
}

// NewHealthMessage builds a health message from current hub stats.
func NewHealthMessage(status HealthStatus, version string, stats hub.Stats, startTime time.Time) HealthMessage {
	return HealthMessage{
		Status:           status,
		Version:          version,
		UptimeSeconds:    int64(time.Since(startTime).Seconds()),
		Devices:          stats.DeviceCount,
		LinesReceived:    stats.LinesRx,
		LinesSent:        stats.LinesTx,
		ChecksumErrors:   stats.ChecksumErrors,
		FramesDropped:    stats.FramesDropped,
		ValuesDispatched: stats.ValuesDispatched,
		DevicesEvicted:   stats.DevicesEvicted,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
}
