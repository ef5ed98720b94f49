package hub

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger is the logging interface used by the hub package.
// It is satisfied by *logging.Logger and by slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// protocolVersion is the only metadata version this hub understands.
const protocolVersion = "1"

// firstNameSuffix is the suffix appended to the second component of a
// given type; later collisions count up from here.
const firstNameSuffix = 2

// Registry tracks the devices currently visible on the serial line and a
// flattened, discovery-ordered list of their components.
//
// The registry holds no persistent state: it is rebuilt from scratch on
// process restart as boards re-announce themselves.
//
// All public methods are thread-safe; every read and write goes through
// one mutex. Accessors return detached value snapshots, never the live
// *Device or *Component records, so callers on other goroutines can hold
// results without further locking.
type Registry struct {
	mu         sync.Mutex
	devices    map[int]*Device
	components []*Component
	logger     Logger
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[int]*Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// ComponentInfo is a detached snapshot of one component, safe to hold
// without the registry mutex.
type ComponentInfo struct {
	Name        string
	DeviceIndex int
	DeviceID    string
	Dir         Direction
	Type        string
	Model       string
	Units       string
	OutputValue string
}

// DeviceInfo is a detached snapshot of one device and its components.
type DeviceInfo struct {
	Index      int
	ID         string
	Ready      bool
	LastSeen   time.Time
	Components []ComponentInfo
}

// snapshotComponent copies a live component. Caller must hold r.mu.
func snapshotComponent(c *Component) ComponentInfo {
	return ComponentInfo{
		Name:        c.Name,
		DeviceIndex: c.Device.Index,
		DeviceID:    c.Device.ID,
		Dir:         c.Dir,
		Type:        c.Type,
		Model:       c.Model,
		Units:       c.Units,
		OutputValue: c.OutputValue,
	}
}

// snapshotDevice copies a live device. Caller must hold r.mu.
func snapshotDevice(d *Device) DeviceInfo {
	info := DeviceInfo{
		Index:      d.Index,
		ID:         d.ID,
		Ready:      d.Ready(),
		LastSeen:   d.LastSeen,
		Components: make([]ComponentInfo, 0, len(d.Components)),
	}
	for _, c := range d.Components {
		info.Components = append(info.Components, snapshotComponent(c))
	}
	return info
}

// Touch records traffic from a device index, creating the device record if
// this is first contact. It reports whether the device was created; a
// created device is metadata-pending and the caller must issue a metadata
// request for it.
func (r *Registry) Touch(index int, now time.Time) bool {
	_, created := r.touch(index, now)
	return created
}

// touch is Touch with access to the live record. Only the receiver path
// uses it; external callers get snapshots.
func (r *Registry) touch(index int, now time.Time) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[index]
	if !ok {
		d = &Device{Index: index, LastSeen: now}
		r.devices[index] = d
		r.logger.Debug("new device", "index", index)
		return d, true
	}
	d.LastSeen = now
	return d, false
}

// ApplyMetadata processes the semicolon-delimited args of a metadata reply
// for the given device index.
//
// The first field is the protocol version and must equal "1"; the second
// is the device identifier; each remaining field describes one component
// as "dir,type[,model[,units]]". A component whose type already exists on
// the device is skipped without duplicating it. Any malformed field
// discards the whole update and leaves the device in its prior state.
func (r *Registry) ApplyMetadata(index int, args string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[index]
	if !ok {
		return fmt.Errorf("hub: metadata for unknown device %d", index)
	}

	fields := strings.Split(args, ";")
	if len(fields) < 2 {
		return fmt.Errorf("hub: metadata needs version and id, got %d fields", len(fields))
	}
	if fields[0] != protocolVersion {
		return fmt.Errorf("%w: %q", ErrVersionMismatch, fields[0])
	}

	// Validate every component field before mutating anything, so a
	// malformed update never applies partially.
	for _, f := range fields[2:] {
		if parts := strings.Split(f, ","); len(parts) < 2 || parts[1] == "" {
			return fmt.Errorf("hub: malformed component field %q", f)
		}
	}

	d.ID = fields[1]
	d.LastSeen = now

	for _, f := range fields[2:] {
		parts := strings.Split(f, ",")
		typ := parts[1]

		if d.componentOfType(typ) != nil {
			r.logger.Debug("component type already exists",
				"index", index, "type", typ)
			continue
		}

		c := &Component{
			Device:      d,
			Dir:         directionFromCode(parts[0]),
			Type:        typ,
			OutputValue: "0",
		}
		if len(parts) > 2 {
			c.Model = parts[2]
		}
		if len(parts) > 3 {
			c.Units = parts[3]
		}
		c.Name = r.assignName(typ)

		d.Components = append(d.Components, c)
		r.components = append(r.components, c)

		r.logger.Debug("new component",
			"index", index, "dir", c.Dir.String(), "type", c.Type,
			"model", c.Model, "units", c.Units, "name", c.Name)
	}

	r.logger.Debug("device metadata applied",
		"index", index, "id", d.ID, "components", len(d.Components))
	return nil
}

// componentOfType returns the device's component of the given type, or nil.
// Caller must hold r.mu.
func (d *Device) componentOfType(typ string) *Component {
	for _, c := range d.Components {
		if c.Type == typ {
			return c
		}
	}
	return nil
}

// assignName derives a registry-unique display name from a component type.
// The first component of a type gets the bare type; later ones get an
// increasing numeric suffix. Caller must hold r.mu.
func (r *Registry) assignName(typ string) string {
	name := typ
	for i := firstNameSuffix; r.findComponent(name) != nil; i++ {
		name = fmt.Sprintf("%s %d", typ, i)
	}
	return name
}

// findComponent returns the live component with the given display name, or
// nil. Caller must hold r.mu.
func (r *Registry) findComponent(name string) *Component {
	for _, c := range r.components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// FindComponent returns a snapshot of the live component with the given
// display name. Returns ErrComponentNotFound if no component has that name.
func (r *Registry) FindComponent(name string) (ComponentInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c := r.findComponent(name); c != nil {
		return snapshotComponent(c), nil
	}
	return ComponentInfo{}, ErrComponentNotFound
}

// Device returns a snapshot of the device with the given index, if present.
func (r *Registry) Device(index int) (DeviceInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[index]
	if !ok {
		return DeviceInfo{}, false
	}
	return snapshotDevice(d), true
}

// Devices returns a snapshot of all known devices, ordered by index.
func (r *Registry) Devices() []DeviceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]DeviceInfo, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, snapshotDevice(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Components returns a snapshot of the flattened component list in
// discovery order.
func (r *Registry) Components() []ComponentInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ComponentInfo, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, snapshotComponent(c))
	}
	return out
}

// DeviceCount returns the number of currently known devices.
func (r *Registry) DeviceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// EvictSilent removes every device whose last-seen timestamp is older than
// the threshold, along with all its components. Evicted display names
// become reusable. It returns snapshots of the evicted devices.
func (r *Registry) EvictSilent(now time.Time, threshold time.Duration) []DeviceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []DeviceInfo
	for index, d := range r.devices {
		if now.Sub(d.LastSeen) <= threshold {
			continue
		}
		kept := r.components[:0]
		for _, c := range r.components {
			if c.Device != d {
				kept = append(kept, c)
			}
		}
		r.components = kept
		delete(r.devices, index)
		evicted = append(evicted, snapshotDevice(d))
		r.logger.Debug("device removed", "index", index, "id", d.ID)
	}
	return evicted
}

// setOutput looks up an output component by display name, stores the value
// on it and returns the owning device's index, the comma-joined current
// values of all its output components in discovery order, and a snapshot
// of the updated component. The caller encodes and sends the resulting
// set-outputs frame.
func (r *Registry) setOutput(name, value string) (index int, csv string, info ComponentInfo, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findComponent(name)
	if c == nil {
		return 0, "", ComponentInfo{}, fmt.Errorf("%w: %s", ErrComponentNotFound, name)
	}
	if c.Dir != Out {
		return 0, "", ComponentInfo{}, fmt.Errorf("%w: %s", ErrNotOutput, c.Name)
	}
	c.OutputValue = value

	values := make([]string, 0, len(c.Device.Components))
	for _, oc := range c.Device.Components {
		if oc.Dir == Out {
			values = append(values, oc.OutputValue)
		}
	}
	return c.Device.Index, strings.Join(values, ","), snapshotComponent(c), nil
}
