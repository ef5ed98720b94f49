package hub

import "time"

// Device is one physical board on the serial line, addressed by a small
// integer index assigned by the transport-side protocol.
//
// A device record is created the instant any frame referencing an unknown
// index arrives, and stays metadata-pending (empty component list) until a
// metadata reply is processed. It is evicted once it has been silent for
// longer than the hub's silence threshold.
type Device struct {
	// Index is the board's protocol address, stable for the board's
	// connected lifetime.
	Index int

	// ID is the opaque identifier string learned from metadata; empty
	// until the first metadata reply.
	ID string

	// Components are the board's channels in discovery order from the
	// metadata message.
	Components []*Component

	// LastSeen is when the board last sent a valid frame.
	LastSeen time.Time
}

// Ready reports whether the device has received metadata and can accept
// values frames.
func (d *Device) Ready() bool {
	return len(d.Components) > 0
}

// inputCount returns the number of input components.
func (d *Device) inputCount() int {
	n := 0
	for _, c := range d.Components {
		if c.Dir == In {
			n++
		}
	}
	return n
}
