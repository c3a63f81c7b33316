package serialmux

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ErrPortClosed is returned by TestableSerialPort after Close.
var ErrPortClosed = errors.New("serial port closed")

// TestableSerialPort implements SerialPorter with configurable behaviour for
// testing. Reads on an empty buffer wait for data up to the read timeout and
// then return 0, nil, as go.bug.st/serial does.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// OnWrite, if set, is called with each write; its return value is queued
	// as read data. It runs with the port lock released.
	OnWrite func(p []byte) []byte

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls records the number of Read calls
	ReadCalls int

	// WriteCalls records the number of Write calls
	WriteCalls int

	// ReadTimeout is the current read timeout. Negative blocks until data.
	ReadTimeout time.Duration

	// Mode records the last mode passed to SetMode
	Mode *serial.Mode

	arrived chan struct{}
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	return &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
		arrived:     make(chan struct{}),
	}
}

func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++
	if t.Closed {
		return 0, ErrPortClosed
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.ReadBuffer.Len() == 0 && t.ReadTimeout != 0 {
		arrived := t.arrived
		var expired <-chan time.Time
		if t.ReadTimeout > 0 {
			timer := time.NewTimer(t.ReadTimeout)
			defer timer.Stop()
			expired = timer.C
		}
		t.mu.Unlock()
		select {
		case <-arrived:
		case <-expired:
		}
		t.mu.Lock()
		if t.Closed {
			return 0, ErrPortClosed
		}
	}
	if t.ReadBuffer.Len() == 0 {
		return 0, nil
	}
	return t.ReadBuffer.Read(p)
}

func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	t.WriteCalls++
	if t.Closed {
		t.mu.Unlock()
		return 0, ErrPortClosed
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		t.mu.Unlock()
		return 0, err
	}
	t.WriteBuffer.Write(p)
	onWrite := t.OnWrite
	t.mu.Unlock()

	if onWrite != nil {
		if reply := onWrite(bytes.Clone(p)); len(reply) > 0 {
			t.AddReadData(reply)
		}
	}
	return len(p), nil
}

// Close marks the port as closed and wakes blocked readers.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.Closed {
		t.Closed = true
		close(t.arrived)
	}
	return t.CloseError
}

func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadTimeout = timeout
	return nil
}

// Reopen clears the closed state and any unread data so the port can be
// handed out again by an opener.
func (t *TestableSerialPort) Reopen() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Closed {
		t.Closed = false
		t.ReadBuffer.Reset()
		t.arrived = make(chan struct{})
	}
}

// SetMode records mode so tests can observe baud rate changes.
func (t *TestableSerialPort) SetMode(mode *serial.Mode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Closed {
		return ErrPortClosed
	}
	t.Mode = mode
	return nil
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadBuffer.Write(data)
	if !t.Closed {
		close(t.arrived)
		t.arrived = make(chan struct{})
	}
}

// GetWrittenData returns a copy of all data written to the port.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return bytes.Clone(t.WriteBuffer.Bytes())
}

// MockOpener records Open calls and hands out a fixed port.
type MockOpener struct {
	mu sync.Mutex

	// Port is the port to return from Open
	Port SerialPorter

	// Error is returned by Open if set
	Error error

	// OpenCalls records all Open calls
	OpenCalls []MockOpenCall
}

// MockOpenCall records details of an Open call.
type MockOpenCall struct {
	Path string
	Opts PortOptions
}

func NewMockOpener(port SerialPorter) *MockOpener {
	return &MockOpener{Port: port}
}

// Open satisfies PortOpener.
func (m *MockOpener) Open(path string, opts PortOptions) (SerialPorter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenCalls = append(m.OpenCalls, MockOpenCall{Path: path, Opts: opts})
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Port, nil
}

// LastCall returns the most recent Open call, or nil if none.
func (m *MockOpener) LastCall() *MockOpenCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.OpenCalls) == 0 {
		return nil
	}
	return &m.OpenCalls[len(m.OpenCalls)-1]
}
