package serialmux

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// SerialPorter defines the minimal interface needed for a serial port.
// go.bug.st/serial.Port satisfies it, as do the in-memory test ports.
//
// Read follows go.bug.st/serial semantics: when the read timeout expires with
// no data, Read returns 0 and a nil error.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
	SetReadTimeout(timeout time.Duration) error
}

// ModeSetter is implemented by ports that can change line settings in place.
type ModeSetter interface {
	SetMode(mode *serial.Mode) error
}

// PortOpener opens a serial port at path with the given options.
type PortOpener func(path string, opts PortOptions) (SerialPorter, error)
