package hub

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeTransport is an in-memory LineTransport. ReadLine pops queued lines;
// Write captures sent frames.
type fakeTransport struct {
	mu      sync.Mutex
	pending [][]byte
	writes  []string
}

func (f *fakeTransport) ReadLine() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil, nil
	}
	line := f.pending[0]
	f.pending = f.pending[1:]
	return line, nil
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	f.writes = append(f.writes, string(p))
	f.mu.Unlock()
	return len(p), nil
}

func (f *fakeTransport) queue(bodies ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, body := range bodies {
		line := EncodeFrame(body)
		f.pending = append(f.pending, line[:len(line)-1])
	}
}

func (f *fakeTransport) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.writes))
	copy(out, f.writes)
	return out
}

// reading is one captured handler invocation.
type reading struct {
	name  string
	value string
}

// capture collects handler invocations.
type capture struct {
	mu       sync.Mutex
	readings []reading
}

func (c *capture) HandleReading(comp *Component, value string) {
	c.mu.Lock()
	c.readings = append(c.readings, reading{comp.Name, value})
	c.mu.Unlock()
}

func (c *capture) all() []reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]reading, len(c.readings))
	copy(out, c.readings)
	return out
}

// newTestHub returns a hub and its transport, without starting the loops.
// Tests drive handleLine directly.
func newTestHub(t *testing.T) (*Hub, *fakeTransport, *capture) {
	t.Helper()
	ft := &fakeTransport{}
	h := New(ft, Options{})
	sink := &capture{}
	h.AddHandler(sink)
	return h, ft, sink
}

// feed frames a body and pushes it through the hub's line handler.
func feed(h *Hub, body string) {
	line := EncodeFrame(body)
	h.handleLine(line[:len(line)-1])
}

// =============================================================================
// Discovery Tests
// =============================================================================

func TestFirstContactRequestsMetadata(t *testing.T) {
	h, ft, sink := newTestHub(t)

	feed(h, "0>v:23.5")

	sent := ft.sent()
	if len(sent) != 1 || sent[0] != "0>m|2BCC\n" {
		t.Errorf("sent = %v, want single metadata request", sent)
	}
	if got := sink.all(); len(got) != 0 {
		t.Errorf("readings dispatched before metadata: %v", got)
	}
	if h.Stats().DeviceCount != 1 {
		t.Errorf("DeviceCount = %d, want 1", h.Stats().DeviceCount)
	}
}

func TestFirstContactMetadataAppliedDirectly(t *testing.T) {
	h, ft, sink := newTestHub(t)

	// A board may volunteer metadata before we ever ask. One frame is
	// enough to take the device all the way to ready.
	feed(h, "0>m:1;devA;i,temp;o,relay")
	feed(h, "0>v:23.5")

	if len(ft.sent()) != 0 {
		t.Errorf("sent = %v, want no metadata request", ft.sent())
	}
	got := sink.all()
	if len(got) != 1 || got[0] != (reading{"temp", "23.5"}) {
		t.Errorf("readings = %v, want [{temp 23.5}]", got)
	}
}

func TestValuesBeforeMetadataRerequests(t *testing.T) {
	h, ft, sink := newTestHub(t)

	feed(h, "0>v:9.9") // first contact, triggers request
	feed(h, "0>v:9.9") // still no schema, triggers another

	sent := ft.sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d frames, want 2 metadata requests: %v", len(sent), sent)
	}
	for _, frame := range sent {
		if !strings.HasPrefix(frame, "0>m|") {
			t.Errorf("sent frame %q, want metadata request", frame)
		}
	}
	if got := sink.all(); len(got) != 0 {
		t.Errorf("readings dispatched without schema: %v", got)
	}
}

// =============================================================================
// Values Routing Tests
// =============================================================================

func TestValuesDispatchPositional(t *testing.T) {
	h, _, sink := newTestHub(t)

	// Output components take no slot in a values message.
	feed(h, "0>m:1;devA;i,temp;o,relay;i,hum")
	feed(h, "0>v:23.5,61")

	want := []reading{{"temp", "23.5"}, {"hum", "61"}}
	got := sink.all()
	if len(got) != len(want) {
		t.Fatalf("readings = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("readings[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if h.Stats().ValuesDispatched != 2 {
		t.Errorf("ValuesDispatched = %d, want 2", h.Stats().ValuesDispatched)
	}
}

func TestValuesShortMessage(t *testing.T) {
	h, _, sink := newTestHub(t)

	feed(h, "0>m:1;devA;i,temp;o,relay;i,hum")
	feed(h, "0>v:23.5")

	// The present value dispatches; the missing one is logged, not guessed.
	got := sink.all()
	if len(got) != 1 || got[0] != (reading{"temp", "23.5"}) {
		t.Errorf("readings = %v, want [{temp 23.5}]", got)
	}
}

func TestValuesNonNumericSkipped(t *testing.T) {
	h, _, sink := newTestHub(t)

	feed(h, "0>m:1;devA;i,temp;i,hum")
	feed(h, "0>v:abc,2.5")

	// The bad value consumes its slot; the next input still pairs with
	// the next value.
	got := sink.all()
	if len(got) != 1 || got[0] != (reading{"hum", "2.5"}) {
		t.Errorf("readings = %v, want [{hum 2.5}]", got)
	}
}

func TestValuesExtraValuesIgnored(t *testing.T) {
	h, _, sink := newTestHub(t)

	feed(h, "0>m:1;devA;i,temp")
	feed(h, "0>v:1.5,2.5")

	got := sink.all()
	if len(got) != 1 || got[0] != (reading{"temp", "1.5"}) {
		t.Errorf("readings = %v, want [{temp 1.5}]", got)
	}
}

func TestMultipleHandlersInOrder(t *testing.T) {
	h, _, first := newTestHub(t)
	second := &capture{}
	h.AddHandler(second)

	feed(h, "0>m:1;devA;i,temp")
	feed(h, "0>v:5")

	if len(first.all()) != 1 || len(second.all()) != 1 {
		t.Errorf("handler counts = %d, %d, want 1, 1", len(first.all()), len(second.all()))
	}
}

// =============================================================================
// Error Path Tests
// =============================================================================

func TestCorruptLineCounted(t *testing.T) {
	h, ft, _ := newTestHub(t)

	h.handleLine([]byte("0>v:23.5|1234"))
	h.handleLine([]byte("0>v:23.5"))

	stats := h.Stats()
	if stats.ChecksumErrors != 2 {
		t.Errorf("ChecksumErrors = %d, want 2", stats.ChecksumErrors)
	}
	// A corrupt line never reaches the registry.
	if stats.DeviceCount != 0 {
		t.Errorf("DeviceCount = %d, want 0", stats.DeviceCount)
	}
	if len(ft.sent()) != 0 {
		t.Errorf("sent = %v, want nothing", ft.sent())
	}
}

func TestMalformedIndexDropped(t *testing.T) {
	h, _, _ := newTestHub(t)

	feed(h, "p") // valid checksum, no index separator

	stats := h.Stats()
	if stats.FramesDropped != 1 {
		t.Errorf("FramesDropped = %d, want 1", stats.FramesDropped)
	}
	if stats.ChecksumErrors != 0 {
		t.Errorf("ChecksumErrors = %d, want 0", stats.ChecksumErrors)
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	h, ft, sink := newTestHub(t)

	feed(h, "0>m:1;devA;i,temp")
	feed(h, "0>q")

	if got := sink.all(); len(got) != 0 {
		t.Errorf("readings = %v, want none", got)
	}
	if len(ft.sent()) != 0 {
		t.Errorf("sent = %v, want nothing", ft.sent())
	}
}

func TestBadMetadataDiscarded(t *testing.T) {
	h, _, _ := newTestHub(t)

	feed(h, "0>m:1;devA;i,temp")
	feed(h, "0>m:2;devA;i,hum") // wrong version

	d, ok := h.Registry().Device(0)
	if !ok {
		t.Fatal("device 0 missing")
	}
	if len(d.Components) != 1 {
		t.Errorf("len(Components) = %d after bad update, want 1", len(d.Components))
	}
}

// =============================================================================
// Output Tests
// =============================================================================

func TestSetOutputValueSendsVector(t *testing.T) {
	h, ft, _ := newTestHub(t)

	feed(h, "0>m:1;devA;o,relay;i,temp;o,dimmer")

	relay, err := h.SetOutputValue("relay", "1")
	if err != nil {
		t.Fatalf("SetOutputValue() error = %v", err)
	}
	if relay.OutputValue != "1" {
		t.Errorf("OutputValue = %q, want 1", relay.OutputValue)
	}

	sent := ft.sent()
	if len(sent) != 1 || sent[0] != string(EncodeFrame("0>s:1,0")) {
		t.Errorf("sent = %v, want set-outputs frame for 1,0", sent)
	}
	if h.Stats().LinesTx != 1 {
		t.Errorf("LinesTx = %d, want 1", h.Stats().LinesTx)
	}
}

func TestSetOutputValueRejectsInput(t *testing.T) {
	h, ft, _ := newTestHub(t)

	feed(h, "0>m:1;devA;i,temp")

	if _, err := h.SetOutputValue("temp", "1"); !errors.Is(err, ErrNotOutput) {
		t.Errorf("SetOutputValue() on input error = %v, want ErrNotOutput", err)
	}
	if _, err := h.SetOutputValue("missing", "1"); !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("SetOutputValue() on unknown name error = %v, want ErrComponentNotFound", err)
	}
	if len(ft.sent()) != 0 {
		t.Errorf("sent = %v, want nothing after rejected set", ft.sent())
	}
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestStartStop(t *testing.T) {
	ft := &fakeTransport{}
	ft.queue("0>m:1;devA;i,temp", "0>v:23.5")

	h := New(ft, Options{
		PollInterval:  5 * time.Millisecond,
		ReceiveYield:  time.Millisecond,
		CheckInterval: 5 * time.Millisecond,
	})

	got := make(chan reading, 1)
	h.AddHandler(HandlerFunc(func(c *Component, value string) {
		select {
		case got <- reading{c.Name, value}:
		default:
		}
	}))

	h.Start(context.Background())

	select {
	case r := <-got:
		if r != (reading{"temp", "23.5"}) {
			t.Errorf("reading = %v, want {temp 23.5}", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reading")
	}

	h.Stop()
	h.Stop() // idempotent

	// The poller must have broadcast at least once by now.
	found := false
	for _, frame := range ft.sent() {
		if frame == "p|7C00\n" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no poll broadcast in %v", ft.sent())
	}
}

func TestStopViaContext(t *testing.T) {
	ft := &fakeTransport{}
	h := New(ft, Options{
		PollInterval: 5 * time.Millisecond,
		ReceiveYield: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loops did not stop on context cancellation")
	}
}
