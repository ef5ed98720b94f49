// Package serialport provides the serial line transport for the hub.
//
// It wraps a tarm/serial port with line-oriented reads: each ReadLine call
// returns at most one newline-terminated line, or nothing if the port's
// read timeout expired with no complete line buffered. Partial lines are
// retained across calls, so a line split over several reads still comes
// out whole.
//
// The hub core only sees the hub.LineTransport interface; everything
// port-specific (device path, baud rate, timeouts) lives here.
package serialport
