package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sensaur/sensaur-hub/internal/hub"
	"github.com/sensaur/sensaur-hub/internal/infrastructure/mqtt"
)

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests; *mqtt.Client satisfies it.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// HubAPI is the hub surface the bridge drives.
// *hub.Hub satisfies it.
type HubAPI interface {
	SetOutputValue(name, value string) (hub.ComponentInfo, error)
	Stats() hub.Stats
	Registry() *hub.Registry
}

// Options holds configuration for creating a bridge.
type Options struct {
	// MQTT is the broker client.
	MQTT MQTTClient

	// Hub is the protocol engine.
	Hub HubAPI

	// QoS is the publish QoS for readings and health.
	QoS byte

	// HealthInterval is how often hub health is published.
	// Zero disables health publication.
	HealthInterval time.Duration

	// Version is the hub software version, included in health messages.
	Version string

	// Logger is an optional structured logger.
	Logger Logger
}

// Bridge publishes hub readings to MQTT and routes MQTT output commands
// back into the hub.
//
// Thread Safety: all methods are safe for concurrent use. HandleReading
// is invoked on the hub's receiver goroutine, so publishes there are
// best-effort and never retried in-line.
type Bridge struct {
	mqtt           MQTTClient
	hub            HubAPI
	qos            byte
	healthInterval time.Duration
	version        string
	logger         Logger
	startTime      time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// New creates a bridge. Call Start to begin operation and register the
// bridge as a hub handler to receive readings.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("bridge: MQTT client is required")
	}
	if opts.Hub == nil {
		return nil, fmt.Errorf("bridge: hub is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Bridge{
		mqtt:           opts.MQTT,
		hub:            opts.Hub,
		qos:            opts.QoS,
		healthInterval: opts.HealthInterval,
		version:        opts.Version,
		logger:         logger,
		startTime:      time.Now(),
		done:           make(chan struct{}),
	}, nil
}

// Start subscribes to output command topics and begins health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	topic := mqtt.Topics{}.OutputCommands()
	if err := b.mqtt.Subscribe(topic, b.qos, b.handleOutputCommand); err != nil {
		return fmt.Errorf("bridge: subscribing to output commands: %w", err)
	}
	b.logger.Info("subscribed to output commands", "topic", topic)

	if b.healthInterval > 0 {
		b.wg.Add(1)
		go b.healthLoop(ctx)
	}
	return nil
}

// Stop shuts the bridge down, publishing a final stopping status.
// Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
		b.publishHealth(HealthStopping)
		b.logger.Info("bridge stopped")
	})
}

// HandleReading implements hub.Handler: every accepted reading is
// published, retained, to its component topic.
func (b *Bridge) HandleReading(c *hub.Component, value string) {
	msg := ReadingMessage{
		DeviceID:  c.Device.ID,
		Component: c.Name,
		Type:      c.Type,
		Units:     c.Units,
		Value:     value,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling reading", "component", c.Name, "error", err)
		return
	}

	topic := mqtt.Topics{}.Reading(c.Device.ID, c.Name)
	if err := b.mqtt.Publish(topic, payload, b.qos, true); err != nil {
		// Best-effort: the reading already went to the other handlers,
		// and paho will be reconnecting underneath us.
		b.logger.Warn("publishing reading failed", "topic", topic, "error", err)
	}
}

// handleOutputCommand routes one MQTT output command into the hub.
// The payload is the raw value to set.
func (b *Bridge) handleOutputCommand(topic string, payload []byte) error {
	name, ok := mqtt.Topics{}.OutputComponent(topic)
	if !ok {
		return fmt.Errorf("bridge: unexpected command topic %q", topic)
	}

	component, err := b.findBySafeName(name)
	if err != nil {
		return fmt.Errorf("bridge: output command for %q: %w", name, err)
	}

	value := strings.TrimSpace(string(payload))
	if value == "" {
		return fmt.Errorf("bridge: empty output value for %q", name)
	}

	if _, err := b.hub.SetOutputValue(component.Name, value); err != nil {
		return fmt.Errorf("bridge: setting output %q: %w", component.Name, err)
	}
	b.logger.Debug("output set via mqtt", "component", component.Name, "value", value)
	return nil
}

// findBySafeName finds the live component whose topic-safe display name
// matches. Topic levels cannot carry spaces, so the registry name and the
// topic level differ for suffixed names like "temp 2".
//
// The mapping to topic-safe names is lossy: "temp 2" and "temp_2" both
// map to the level "temp_2". A command whose level matches more than one
// live component is rejected rather than delivered to an arbitrary one.
func (b *Bridge) findBySafeName(name string) (hub.ComponentInfo, error) {
	var (
		found hub.ComponentInfo
		n     int
	)
	for _, c := range b.hub.Registry().Components() {
		if mqtt.TopicSafe(c.Name) == name {
			found = c
			n++
		}
	}
	switch n {
	case 0:
		return hub.ComponentInfo{}, hub.ErrComponentNotFound
	case 1:
		return found, nil
	default:
		return hub.ComponentInfo{}, fmt.Errorf("bridge: topic level %q matches %d components", name, n)
	}
}

// healthLoop periodically publishes hub health.
func (b *Bridge) healthLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.healthInterval)
	defer ticker.Stop()

	b.publishHealth(b.determineStatus())

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-ticker.C:
			b.publishHealth(b.determineStatus())
		}
	}
}

// determineStatus evaluates the current bridge status.
func (b *Bridge) determineStatus() HealthStatus {
	if !b.mqtt.IsConnected() {
		return HealthDegraded
	}
	return HealthHealthy
}

// publishHealth publishes one health message, best-effort.
func (b *Bridge) publishHealth(status HealthStatus) {
	msg := NewHealthMessage(status, b.version, b.hub.Stats(), b.startTime)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling health", "error", err)
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.HubHealth(), payload, b.qos, true); err != nil {
		b.logger.Warn("publishing health failed", "error", err)
	}
}
