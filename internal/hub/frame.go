package hub

import (
	"fmt"
	"strconv"
	"strings"
)

// Command identifies a protocol frame type.
//
// The command set is closed: anything outside it decodes into an Event but
// is ignored by the hub's router.
type Command byte

// Protocol commands.
const (
	// CmdPoll is the broadcast poll sent by the hub ("p").
	CmdPoll Command = 'p'

	// CmdMetadata requests (hub→board) or carries (board→hub) a board's
	// component metadata ("m").
	CmdMetadata Command = 'm'

	// CmdValues carries one reading per input component ("v").
	CmdValues Command = 'v'

	// CmdSetOutputs carries one value per output component, hub→board
	// only ("s").
	CmdSetOutputs Command = 's'
)

// Event is one successfully decoded protocol frame.
type Event struct {
	// DeviceIndex is the small integer the transport-side protocol
	// assigned to the sending board.
	DeviceIndex int

	// Command is the frame's command letter.
	Command Command

	// Args is the raw argument string after the ":" separator; empty for
	// bare commands. Values frames delimit with commas, metadata frames
	// with semicolons.
	Args string
}

// EncodeFrame frames a message body for the wire.
//
// The output is <body>|<checksum-hex>\n with the checksum rendered as
// uppercase hex, no fixed width (e.g. "0>s:1|28D"). Pure transformation;
// the caller performs the write.
func EncodeFrame(body string) []byte {
	return fmt.Appendf(nil, "%s|%X\n", body, Checksum(body))
}

// DecodeFrame validates and decodes one received line into an Event.
//
// Trailing whitespace and line terminators are stripped first. The frame
// must carry a "|"-separated checksum that matches the recomputed value,
// and a ">"-separated non-negative device index. Failures return one of
// ErrChecksumMissing, ErrChecksumMismatch or ErrMalformedIndex; the caller
// decides how loudly to log each.
func DecodeFrame(line []byte) (Event, error) {
	raw := strings.TrimRight(string(line), " \t\r\n")

	body, field, ok := strings.Cut(raw, "|")
	if !ok {
		return Event{}, ErrChecksumMissing
	}

	given, err := strconv.ParseUint(field, 16, 16)
	if err != nil {
		return Event{}, fmt.Errorf("%w: unparseable checksum %q", ErrChecksumMismatch, field)
	}
	if computed := Checksum(body); computed != uint16(given) {
		return Event{}, fmt.Errorf("%w: computed %X, given %X", ErrChecksumMismatch, computed, given)
	}

	prefix, payload, ok := strings.Cut(body, ">")
	if !ok {
		return Event{}, fmt.Errorf("%w: no device index separator", ErrMalformedIndex)
	}
	index, err := strconv.Atoi(prefix)
	if err != nil || index < 0 {
		return Event{}, fmt.Errorf("%w: %q", ErrMalformedIndex, prefix)
	}

	// A command is a single letter. Anything longer decodes with a zero
	// command, which the router treats as unknown and ignores.
	cmd, args, _ := strings.Cut(payload, ":")
	ev := Event{DeviceIndex: index, Args: args}
	if len(cmd) == 1 {
		ev.Command = Command(cmd[0])
	}
	return ev, nil
}
