// Package sik implements the host side of the SiK telemetry radio's AT
// command protocol: command-mode entry and exit, the echo-then-reply
// exchange, EEPROM parameter synchronisation and the RSSI telemetry stream.
//
// A Client is not reentrant on the wire. Every operation holds the client
// lock for its whole exchange, so concurrent callers are serialised.
package sik

import (
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/siklink/internal/monitoring"
	"github.com/banshee-data/siklink/internal/params"
	"github.com/banshee-data/siklink/internal/serialmux"
	"github.com/banshee-data/siklink/internal/timeutil"
)

// State is the connection state of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateCommandMode
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateCommandMode:
		return "command-mode"
	default:
		return "disconnected"
	}
}

// Client drives one radio over a serialmux.Transport.
type Client struct {
	mu           sync.Mutex
	transport    serialmux.Transport
	clock        timeutil.Clock
	readTimeout  time.Duration
	pollInterval time.Duration
	lines        *serialmux.Broadcaster
	config       *params.Config

	commandMode bool
	streaming   bool
}

// NewClient returns a disconnected client using transport.
func NewClient(transport serialmux.Transport, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.config == nil {
		o.config = params.NewConfig()
	}
	return &Client{
		transport:    transport,
		clock:        o.clock,
		readTimeout:  o.readTimeout,
		pollInterval: o.pollInterval,
		lines:        o.lines,
		config:       o.config,
	}
}

// Config returns the snapshot the client reads into and saves from.
func (c *Client) Config() *params.Config { return c.config }

// Connect opens port at baud. It is a no-op if the port is already open.
func (c *Client) Connect(port string, baud int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport.IsOpen() {
		return nil
	}
	if err := c.transport.Open(port, baud); err != nil {
		return &OpError{Op: "connect", Err: err}
	}
	c.commandMode = false
	c.streaming = false
	monitoring.Logf("sik: connected to %s at %d baud", port, baud)
	return nil
}

// Disconnect leaves command mode (best effort) and closes the port. It is a
// no-op on a closed client.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.transport.IsOpen() {
		c.commandMode = false
		c.streaming = false
		return nil
	}
	if c.commandMode {
		if _, err := c.exchange(cmdExit, false); err != nil {
			monitoring.Logf("sik: leaving command mode: %v", err)
		}
	}
	c.commandMode = false
	c.streaming = false
	return c.transport.Close()
}

// IsConnected reports whether the serial port is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.IsOpen()
}

// InCommandMode reports whether the radio was last put in command mode on
// the open port.
func (c *Client) InCommandMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commandMode && c.transport.IsOpen()
}

// StreamingEnabled reports whether RSSI reporting is on; command operations
// are refused while it is.
func (c *Client) StreamingEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming && c.transport.IsOpen()
}

// State summarises the connection for status reporting.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.transport.IsOpen():
		return StateDisconnected
	case c.commandMode:
		return StateCommandMode
	default:
		return StateConnected
	}
}

// PortName returns the open port's name, or "" when disconnected.
func (c *Client) PortName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.PortName()
}

// requireConnected must be called with c.mu held.
func (c *Client) requireConnected() error {
	if !c.transport.IsOpen() {
		return ErrNotConnected
	}
	if c.streaming {
		return ErrStreaming
	}
	return nil
}

// requireCommandMode must be called with c.mu held.
func (c *Client) requireCommandMode() error {
	if !c.transport.IsOpen() {
		return ErrNotConnected
	}
	if !c.commandMode {
		return ErrNotInCommandMode
	}
	if c.streaming {
		return ErrStreaming
	}
	return nil
}

// exchange writes "AT"+command and reads the echo line. A mismatched echo is
// logged and otherwise ignored. When wantReply is set the next line is read
// and returned without its trailing carriage return.
func (c *Client) exchange(command string, wantReply bool) (string, error) {
	sent := "AT" + command
	if err := c.transport.WriteLine(sent); err != nil {
		return "", err
	}
	echo, err := c.transport.ReadLine(c.readTimeout)
	if err != nil {
		return "", err
	}
	if echo = strings.TrimRight(echo, "\r"); echo != sent {
		monitoring.Warnf("sik: echo mismatch: sent %q, read %q", sent, echo)
	}
	if !wantReply {
		return "", nil
	}
	reply, err := c.transport.ReadLine(c.readTimeout)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(reply, "\r"), nil
}
