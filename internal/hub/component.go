package hub

// Direction indicates whether a component is a sensor input or an
// actuator output.
type Direction int

// Component directions.
const (
	// In is a sensor channel: the board reports readings for it.
	In Direction = iota

	// Out is an actuator channel: the hub writes values to it.
	Out
)

// String returns the wire-friendly name of the direction.
func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// directionFromCode maps the metadata direction code to a Direction.
// The firmware sends "o" for outputs; anything else is an input.
func directionFromCode(code string) Direction {
	if code == "o" {
		return Out
	}
	return In
}

// Component is one input or output channel on a device. It is owned by
// exactly one Device and destroyed when that device is evicted.
//
// Every field except OutputValue is set once when metadata is applied and
// never changes afterwards, so handlers may read them without locking.
// OutputValue is written only under the registry mutex; code outside the
// registry reads it through ComponentInfo snapshots.
type Component struct {
	// Device is the owning board.
	Device *Device

	// Name is the display name, unique across all live components. It is
	// derived from Type, with a numeric suffix on collision.
	Name string

	// Dir is the channel direction.
	Dir Direction

	// Type is the channel's type tag (e.g. "temp").
	Type string

	// Model is the optional hardware model string from metadata.
	Model string

	// Units is the optional measurement units string from metadata.
	Units string

	// OutputValue is the last value written to an output channel.
	// Meaningless for inputs.
	OutputValue string
}
