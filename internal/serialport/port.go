package serialport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Defaults for the serial line. The 38400 baud and 50ms read timeout match
// the board firmware's timing.
const (
	defaultBaudRate    = 38400
	defaultReadTimeout = 50 * time.Millisecond

	// readChunkSize is the size of the scratch buffer for raw reads.
	readChunkSize = 256

	// maxLineLength bounds the partial-line buffer; a run of garbage with
	// no newline must not grow it without limit.
	maxLineLength = 4096
)

// ErrLineTooLong is returned when the line buffer overflows without a
// newline; the buffered garbage is discarded.
var ErrLineTooLong = errors.New("serialport: line too long, buffer discarded")

// Config holds serial port settings.
type Config struct {
	// Name is the device path (e.g. "/dev/ttyS0").
	Name string

	// BaudRate is the line speed. Default: 38400.
	BaudRate int

	// ReadTimeout is the per-read timeout. Default: 50ms.
	ReadTimeout time.Duration
}

// Port is a line-oriented serial transport. It implements
// hub.LineTransport.
//
// Thread Safety: ReadLine must be called from a single goroutine (the
// hub's receiver); Write and Close are safe for concurrent use.
type Port struct {
	port *serial.Port

	// buf holds bytes read from the port that do not yet form a complete
	// line. Only the reading goroutine touches it.
	buf bytes.Buffer

	// scratch is the reusable raw read buffer.
	scratch []byte

	closeOnce sync.Once
	closeErr  error
}

// Open opens the serial port described by cfg.
func Open(cfg Config) (*Port, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("serialport: port name is required")
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = defaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.BaudRate,
		Parity:      serial.ParityNone,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serialport: opening %s: %w", cfg.Name, err)
	}

	return &Port{
		port:    p,
		scratch: make([]byte, readChunkSize),
	}, nil
}

// ReadLine returns the next newline-terminated line without its
// terminator, or nil if the read timeout expired before a complete line
// arrived. Partial data is buffered for the next call.
func (p *Port) ReadLine() ([]byte, error) {
	// A complete line may already be buffered from an earlier read.
	if line, ok := p.takeLine(); ok {
		return line, nil
	}

	n, err := p.port.Read(p.scratch)
	if n > 0 {
		p.buf.Write(p.scratch[:n])
	}
	if err != nil && !errors.Is(err, io.EOF) {
		// EOF is how the port reports a timeout with no data; anything
		// else is a real transport failure.
		return nil, fmt.Errorf("serialport: read: %w", err)
	}

	if p.buf.Len() > maxLineLength {
		p.buf.Reset()
		return nil, ErrLineTooLong
	}

	if line, ok := p.takeLine(); ok {
		return line, nil
	}
	return nil, nil
}

// takeLine removes and returns the first complete line from the buffer.
func (p *Port) takeLine() ([]byte, bool) {
	data := p.buf.Bytes()
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return nil, false
	}
	line := make([]byte, i)
	copy(line, data[:i])
	p.buf.Next(i + 1)
	return bytes.TrimRight(line, "\r"), true
}

// Write sends raw bytes to the port.
func (p *Port) Write(b []byte) (int, error) {
	n, err := p.port.Write(b)
	if err != nil {
		return n, fmt.Errorf("serialport: write: %w", err)
	}
	return n, nil
}

// Close closes the underlying port. Safe to call multiple times.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.port.Close()
	})
	return p.closeErr
}
