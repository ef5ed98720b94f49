package hub

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Default scheduling intervals. These match the board firmware's timing
// expectations; override via Options only for tests.
const (
	// defaultPollInterval is how often the broadcast poll is sent.
	defaultPollInterval = 1 * time.Second

	// defaultReceiveYield is how long the receiver sleeps between read
	// attempts to avoid busy-spinning the serial line.
	defaultReceiveYield = 100 * time.Millisecond

	// defaultCheckInterval is how often silent devices are looked for.
	defaultCheckInterval = 1 * time.Second

	// defaultSilenceThreshold is how long a device may stay silent before
	// it is evicted. Boards answer the 1s poll, so 3.5s means three
	// missed polls.
	defaultSilenceThreshold = 3500 * time.Millisecond
)

// LineTransport is the byte-stream collaborator the hub drives.
//
// ReadLine returns one line without its terminator, or an empty slice when
// the read timed out with no data. Write sends raw bytes. The hub does not
// manage the port lifecycle beyond these two calls; the owner opens and
// closes it.
type LineTransport interface {
	ReadLine() ([]byte, error)
	Write(p []byte) (int, error)
}

// Handler receives accepted readings from input components.
//
// Handlers are invoked synchronously on the receiver goroutine, in device
// component order, before the next line is read. A blocking handler stalls
// the receiver.
type Handler interface {
	HandleReading(c *Component, value string)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(c *Component, value string)

// HandleReading calls f(c, value).
func (f HandlerFunc) HandleReading(c *Component, value string) {
	f(c, value)
}

// Stats holds operational counters for monitoring.
type Stats struct {
	LinesRx          uint64
	LinesTx          uint64
	ChecksumErrors   uint64
	FramesDropped    uint64 // Lines dropped for non-checksum reasons
	ValuesDispatched uint64
	DevicesEvicted   uint64
	DeviceCount      int
}

// Options configures a Hub. The zero value uses the protocol defaults.
type Options struct {
	// Logger is an optional structured logger.
	Logger Logger

	// PollInterval overrides the broadcast poll interval.
	PollInterval time.Duration

	// ReceiveYield overrides the receiver's inter-read sleep.
	ReceiveYield time.Duration

	// CheckInterval overrides the disconnect checker's interval.
	CheckInterval time.Duration

	// SilenceThreshold overrides the eviction threshold.
	SilenceThreshold time.Duration
}

// Hub drives the serial protocol: it polls boards, decodes and routes
// incoming frames, evicts silent boards, and fans accepted readings out to
// registered handlers.
//
// Three goroutines (poller, receiver, disconnect checker) share the
// registry; the receiver is the sole writer of component lists and
// last-seen timestamps, the checker only deletes.
//
// Thread Safety: all public methods are safe for concurrent use.
type Hub struct {
	transport LineTransport
	registry  *Registry
	logger    Logger

	pollInterval     time.Duration
	receiveYield     time.Duration
	checkInterval    time.Duration
	silenceThreshold time.Duration

	// handlers is the observer list; append-only under handlersMu.
	handlers   []Handler
	handlersMu sync.RWMutex

	// writeMu serializes transport writes across the three loops and the
	// output API.
	writeMu sync.Mutex

	// Shutdown coordination
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	// Statistics (atomic for lock-free reads)
	linesRx          atomic.Uint64
	linesTx          atomic.Uint64
	checksumErrors   atomic.Uint64
	framesDropped    atomic.Uint64
	valuesDispatched atomic.Uint64
	devicesEvicted   atomic.Uint64
}

// New creates a hub over the given transport.
// Call Start to begin operation.
func New(transport LineTransport, opts Options) *Hub {
	h := &Hub{
		transport:        transport,
		registry:         NewRegistry(),
		logger:           opts.Logger,
		pollInterval:     opts.PollInterval,
		receiveYield:     opts.ReceiveYield,
		checkInterval:    opts.CheckInterval,
		silenceThreshold: opts.SilenceThreshold,
		done:             make(chan struct{}),
	}
	if h.logger == nil {
		h.logger = noopLogger{}
	}
	if h.pollInterval <= 0 {
		h.pollInterval = defaultPollInterval
	}
	if h.receiveYield <= 0 {
		h.receiveYield = defaultReceiveYield
	}
	if h.checkInterval <= 0 {
		h.checkInterval = defaultCheckInterval
	}
	if h.silenceThreshold <= 0 {
		h.silenceThreshold = defaultSilenceThreshold
	}
	h.registry.SetLogger(h.logger)
	return h
}

// Registry returns the hub's device registry for read access by the API
// and bridge layers.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// AddHandler registers a handler for accepted readings.
func (h *Hub) AddHandler(handler Handler) {
	h.handlersMu.Lock()
	h.handlers = append(h.handlers, handler)
	h.handlersMu.Unlock()
}

// Start launches the polling, receiving and disconnect-checking loops.
// The loops stop when ctx is cancelled or Stop is called.
func (h *Hub) Start(ctx context.Context) {
	h.wg.Add(3)
	go h.pollLoop(ctx)
	go h.receiveLoop(ctx)
	go h.evictLoop(ctx)
	h.logger.Info("hub started",
		"poll_interval", h.pollInterval,
		"silence_threshold", h.silenceThreshold)
}

// Stop shuts the three loops down and waits for them to finish.
// Safe to call multiple times.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		h.logger.Info("hub stopped")
	})
}

// Stats returns a snapshot of the hub's operational counters.
func (h *Hub) Stats() Stats {
	return Stats{
		LinesRx:          h.linesRx.Load(),
		LinesTx:          h.linesTx.Load(),
		ChecksumErrors:   h.checksumErrors.Load(),
		FramesDropped:    h.framesDropped.Load(),
		ValuesDispatched: h.valuesDispatched.Load(),
		DevicesEvicted:   h.devicesEvicted.Load(),
		DeviceCount:      h.registry.DeviceCount(),
	}
}

// SetOutputValue stores a value on the named output component and
// retransmits the owning device's whole output vector as one set-outputs
// frame. Resending the full vector means firmware never has to track
// partial updates. It returns a snapshot of the updated component.
//
// Returns ErrComponentNotFound if no live component has that name and
// ErrNotOutput if the component is an input channel.
func (h *Hub) SetOutputValue(name, value string) (ComponentInfo, error) {
	index, csv, info, err := h.registry.setOutput(name, value)
	if err != nil {
		return ComponentInfo{}, err
	}
	if err := h.send(fmt.Sprintf("%d>s:%s", index, csv)); err != nil {
		return ComponentInfo{}, err
	}
	return info, nil
}

// pollLoop broadcasts the poll command at a fixed interval.
func (h *Hub) pollLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.send(string(CmdPoll)); err != nil {
				h.logger.Error("poll send failed", "error", err)
			}
		}
	}
}

// receiveLoop reads lines from the transport and routes them, yielding
// briefly between attempts.
func (h *Hub) receiveLoop(ctx context.Context) {
	defer h.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		default:
		}

		line, err := h.transport.ReadLine()
		if err != nil {
			h.logger.Error("serial read failed", "error", err)
		} else if len(line) > 0 {
			h.handleLine(line)
		}

		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-time.After(h.receiveYield):
		}
	}
}

// evictLoop periodically removes devices that have gone silent.
func (h *Hub) evictLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			for _, d := range h.registry.EvictSilent(time.Now(), h.silenceThreshold) {
				h.devicesEvicted.Add(1)
				h.logger.Info("device evicted",
					"index", d.Index, "id", d.ID,
					"components", len(d.Components))
			}
		}
	}
}

// handleLine decodes one received line and routes the event.
func (h *Hub) handleLine(line []byte) {
	h.linesRx.Add(1)

	ev, err := DecodeFrame(line)
	switch {
	case err == nil:
	case errors.Is(err, ErrChecksumMissing), errors.Is(err, ErrChecksumMismatch):
		h.checksumErrors.Add(1)
		h.logger.Warn("frame dropped", "error", err, "line", string(line))
		return
	default:
		// Malformed index or command: dropped without ceremony, the
		// sender is confused rather than the line being corrupt.
		h.framesDropped.Add(1)
		h.logger.Debug("frame ignored", "error", err, "line", string(line))
		return
	}

	now := time.Now()
	device, created := h.registry.touch(ev.DeviceIndex, now)
	if created && ev.Command != CmdMetadata {
		// First contact: ask for the board's schema before interpreting
		// anything else from it. A metadata reply on first contact is
		// applied directly below instead.
		h.logger.Debug("requesting metadata", "index", ev.DeviceIndex)
		h.requestMetadata(ev.DeviceIndex)
		return
	}

	switch ev.Command {
	case CmdValues:
		if !device.Ready() {
			// No schema yet: re-request metadata instead of guessing.
			// The request is idempotent, so repeating it every poll
			// cycle is harmless.
			h.logger.Debug("values before metadata, re-requesting",
				"index", ev.DeviceIndex)
			h.requestMetadata(ev.DeviceIndex)
			return
		}
		h.handleValues(device, ev.Args)

	case CmdMetadata:
		if err := h.registry.ApplyMetadata(ev.DeviceIndex, ev.Args, now); err != nil {
			h.logger.Warn("metadata discarded",
				"index", ev.DeviceIndex, "error", err)
		}

	case CmdPoll, CmdSetOutputs:
		// Hub-originated commands echoed back; nothing to do.

	default:
		h.logger.Debug("unknown command ignored",
			"index", ev.DeviceIndex, "command", string(byte(ev.Command)))
	}
}

// handleValues walks the device's components in stored order, pairing each
// input component with the next positional value and dispatching it.
//
// Values are forwarded to handlers as the original strings; parsing as a
// float is only a validity check. A short message dispatches what is
// present and logs the shortage; an unparseable value is skipped without
// aborting the rest of the message.
func (h *Hub) handleValues(d *Device, args string) {
	values := strings.Split(args, ",")
	next := 0

	for _, c := range d.Components {
		if c.Dir != In {
			continue
		}
		if next >= len(values) {
			h.logger.Warn("fewer values than input components",
				"index", d.Index,
				"expected", d.inputCount(),
				"got", len(values),
				"error", ErrValueCountMismatch)
			break
		}
		v := values[next]
		next++

		if _, err := strconv.ParseFloat(v, 64); err != nil {
			h.logger.Warn("non-numeric value skipped",
				"index", d.Index, "component", c.Name, "value", v,
				"error", ErrNumericParse)
			continue
		}
		h.dispatch(c, v)
	}
}

// dispatch delivers one accepted reading to every registered handler,
// synchronously and in registration order.
func (h *Hub) dispatch(c *Component, value string) {
	h.handlersMu.RLock()
	handlers := h.handlers
	h.handlersMu.RUnlock()

	for _, handler := range handlers {
		handler.HandleReading(c, value)
	}
	h.valuesDispatched.Add(1)
}

// requestMetadata sends a metadata request for one device index.
func (h *Hub) requestMetadata(index int) {
	if err := h.send(fmt.Sprintf("%d>%c", index, CmdMetadata)); err != nil {
		h.logger.Error("metadata request failed", "index", index, "error", err)
	}
}

// send frames a message body and writes it to the transport.
func (h *Hub) send(body string) error {
	frame := EncodeFrame(body)

	h.writeMu.Lock()
	_, err := h.transport.Write(frame)
	h.writeMu.Unlock()

	if err != nil {
		return fmt.Errorf("writing frame %q: %w", body, err)
	}
	h.linesTx.Add(1)
	h.logger.Debug("frame sent", "body", body)
	return nil
}
