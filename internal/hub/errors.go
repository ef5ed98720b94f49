package hub

import "errors"

// Domain errors for the hub package.
//
// All protocol errors are message-local and non-fatal: the receiver logs
// the diagnostic, drops the offending line (or single value), and carries
// on with the next line. Check with errors.Is().
var (
	// ErrChecksumMissing is returned when a received line has no "|"
	// checksum separator.
	ErrChecksumMissing = errors.New("hub: checksum missing")

	// ErrChecksumMismatch is returned when the recomputed checksum does
	// not match the one carried in the frame.
	ErrChecksumMismatch = errors.New("hub: checksum mismatch")

	// ErrMalformedIndex is returned when the device-index prefix of a
	// frame body does not parse as a non-negative integer.
	ErrMalformedIndex = errors.New("hub: malformed device index")

	// ErrVersionMismatch is returned when a metadata reply carries a
	// protocol version other than "1".
	ErrVersionMismatch = errors.New("hub: protocol version mismatch")

	// ErrValueCountMismatch is returned when a values message carries
	// fewer values than the device has input components.
	ErrValueCountMismatch = errors.New("hub: value count mismatch")

	// ErrNumericParse is returned when a single value in a values message
	// is not numeric text.
	ErrNumericParse = errors.New("hub: numeric parse failure")

	// ErrNotOutput is returned by SetOutputValue when the component is
	// not an output channel.
	ErrNotOutput = errors.New("hub: component is not an output")

	// ErrComponentNotFound is returned when a component lookup by name
	// finds no live component.
	ErrComponentNotFound = errors.New("hub: component not found")
)
