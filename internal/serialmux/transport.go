package serialmux

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrTimeout     = errors.New("timed out waiting for serial data")
	ErrNotOpen     = errors.New("serial port not open")
	ErrWriteFailed = errors.New("failed to write to serial port")
)

// OpenError reports a failure to open a named port.
type OpenError struct {
	Port string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open serial port %s: %v", e.Port, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Transport is a line-oriented serial connection.
type Transport interface {
	// Open opens the named port at baud, closing any port already open.
	Open(name string, baud int) error
	Close() error
	IsOpen() bool
	// PortName returns the name of the open port, or "" when closed.
	PortName() string
	SetBaudRate(baud int) error
	Write(p []byte) error
	// WriteLine writes s followed by "\n".
	WriteLine(s string) error
	// ReadLine returns the next "\n"-terminated line without its "\n".
	// A trailing "\r" is preserved. It returns ErrTimeout when no complete
	// line arrives within timeout.
	ReadLine(timeout time.Duration) (string, error)
	// BytesAvailable reports how many received bytes are waiting to be read.
	BytesAvailable() (int, error)
	// ReadByte returns one pending byte, or ErrTimeout if none arrives.
	ReadByte() (byte, error)
}

// LineTransport implements Transport over a SerialPorter. Bytes read past the
// end of a line are kept for the next read; nothing is retried.
type LineTransport struct {
	mu          sync.Mutex
	opener      PortOpener
	opts        PortOptions
	port        SerialPorter
	name        string
	pending     []byte
	byteTimeout time.Duration
}

// NewLineTransport returns a closed transport that opens ports with opener.
// The base options supply data bits, stop bits and parity; Open supplies the
// baud rate.
func NewLineTransport(opener PortOpener, base PortOptions) *LineTransport {
	if opener == nil {
		opener = OpenSerialPort
	}
	return &LineTransport{
		opener:      opener,
		opts:        base,
		byteTimeout: 100 * time.Millisecond,
	}
}

func (t *LineTransport) Open(name string, baud int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked()
	opts := t.opts
	opts.BaudRate = baud
	opts, err := opts.Normalize()
	if err != nil {
		return &OpenError{Port: name, Err: err}
	}
	port, err := t.opener(name, opts)
	if err != nil {
		return &OpenError{Port: name, Err: err}
	}
	t.port = port
	t.name = name
	t.opts = opts
	return nil
}

func (t *LineTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *LineTransport) closeLocked() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.name = ""
	t.pending = nil
	return err
}

func (t *LineTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

func (t *LineTransport) PortName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// SetBaudRate changes the line speed in place when the port supports it and
// otherwise reopens the port at the new speed.
func (t *LineTransport) SetBaudRate(baud int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return ErrNotOpen
	}
	opts := t.opts
	opts.BaudRate = baud
	mode, err := opts.SerialMode()
	if err != nil {
		return err
	}
	if ms, ok := t.port.(ModeSetter); ok {
		if err := ms.SetMode(mode); err != nil {
			return fmt.Errorf("failed to set baud rate %d: %w", baud, err)
		}
		t.opts.BaudRate = baud
		return nil
	}

	name := t.name
	t.closeLocked()
	port, err := t.opener(name, opts)
	if err != nil {
		return &OpenError{Port: name, Err: err}
	}
	t.port, t.name, t.opts.BaudRate = port, name, baud
	return nil
}

func (t *LineTransport) Write(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return ErrNotOpen
	}
	n, err := t.port.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return ErrWriteFailed
	}
	return nil
}

func (t *LineTransport) WriteLine(s string) error {
	return t.Write([]byte(s + "\n"))
}

func (t *LineTransport) ReadLine(timeout time.Duration) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return "", ErrNotOpen
	}

	deadline := time.Now().Add(timeout)
	for {
		if i := bytes.IndexByte(t.pending, '\n'); i >= 0 {
			line := string(t.pending[:i])
			t.pending = t.pending[i+1:]
			return line, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrTimeout
		}
		if err := t.fill(remaining); err != nil {
			return "", err
		}
	}
}

func (t *LineTransport) BytesAvailable() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return 0, ErrNotOpen
	}
	for {
		before := len(t.pending)
		if err := t.fill(0); err != nil {
			return len(t.pending), err
		}
		if len(t.pending) == before {
			return len(t.pending), nil
		}
	}
}

func (t *LineTransport) ReadByte() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return 0, ErrNotOpen
	}
	if len(t.pending) == 0 {
		if err := t.fill(t.byteTimeout); err != nil {
			return 0, err
		}
		if len(t.pending) == 0 {
			return 0, ErrTimeout
		}
	}
	b := t.pending[0]
	t.pending = t.pending[1:]
	return b, nil
}

// fill performs a single read with the given timeout and appends the result
// to the pending buffer.
func (t *LineTransport) fill(timeout time.Duration) error {
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	buf := make([]byte, 256)
	n, err := t.port.Read(buf)
	t.pending = append(t.pending, buf[:n]...)
	if err != nil {
		return fmt.Errorf("serial read: %w", err)
	}
	return nil
}
