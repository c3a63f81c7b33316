package sik

import (
	"strings"

	"github.com/banshee-data/siklink/internal/monitoring"
)

// CheckCommandMode probes whether the radio is already in command mode by
// sending a single "+" and looking for its echo after CheckSettleDelay. It
// reports false without changing state when no echo arrives. Only
// precondition faults are returned as errors.
func (c *Client) CheckCommandMode() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireConnected(); err != nil {
		return false, err
	}

	if err := c.transport.Write([]byte(escapeProbe)); err != nil {
		monitoring.Logf("sik: command mode probe: %v", err)
		return false, nil
	}
	c.clock.Sleep(CheckSettleDelay)

	n, err := c.transport.BytesAvailable()
	if err != nil || n == 0 {
		return false, nil
	}
	b, err := c.transport.ReadByte()
	if err != nil || b != escapeProbe[0] {
		return false, nil
	}

	// Flush the probe with a no-op so the next exchange starts clean.
	if _, err := c.exchange(cmdNop, false); err != nil {
		monitoring.Logf("sik: command mode probe flush: %v", err)
	}
	c.commandMode = true
	return true, nil
}

// EnterCommandMode sends "+++", waits EnterSettleDelay and expects a line
// starting with "OK". Any other outcome leaves the client out of command mode
// and returns an *OpError.
func (c *Client) EnterCommandMode() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireConnected(); err != nil {
		return err
	}

	if err := c.transport.Write([]byte(escapeEnter)); err != nil {
		return &OpError{Op: "enter command mode", Err: err}
	}
	c.clock.Sleep(EnterSettleDelay)

	line, err := c.transport.ReadLine(c.readTimeout)
	if err != nil {
		c.commandMode = false
		return &OpError{Op: "enter command mode", Err: err}
	}
	if !strings.HasPrefix(line, replyOK) {
		c.commandMode = false
		return &OpError{Op: "enter command mode", Err: unexpectedReply(strings.TrimRight(line, "\r"))}
	}
	c.commandMode = true
	monitoring.Logf("sik: entered command mode")
	return nil
}
