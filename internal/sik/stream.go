package sik

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/banshee-data/siklink/internal/monitoring"
	"github.com/banshee-data/siklink/internal/serialmux"
	"github.com/banshee-data/siklink/internal/telemetry"
)

// maxDrainLines bounds how many late reports ToggleRssiDebug discards after
// turning streaming off.
const maxDrainLines = 64

// ToggleRssiDebug flips StreamingEnabled and sends AT&T=RSSI, which toggles
// the radio's periodic link-quality report. It is allowed in either mode.
//
// Reports already queued ahead of the echo are skipped while waiting for it.
// When streaming is turned off, reports still in flight are drained until the
// line goes quiet for one poll interval. Skipped lines are published to the
// broadcaster.
func (c *Client) ToggleRssiDebug() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.transport.IsOpen() {
		return ErrNotConnected
	}
	wasStreaming := c.streaming
	c.streaming = !c.streaming

	sent := "AT" + cmdRssiDebug
	err := c.transport.WriteLine(sent)
	if err == nil {
		err = c.awaitEcho(sent)
	}
	if err != nil {
		if !errors.Is(err, serialmux.ErrTimeout) {
			c.streaming = wasStreaming
			return &OpError{Op: "toggle rssi debug", Err: err}
		}
		monitoring.Logf("sik: no echo for %s", sent)
	}
	if wasStreaming {
		if err := c.drainReports(); err != nil {
			return &OpError{Op: "toggle rssi debug", Err: err}
		}
	}
	monitoring.Logf("sik: telemetry streaming enabled=%t", c.streaming)
	return nil
}

// awaitEcho reads lines until the echo of sent, skipping telemetry reports.
// The first other line is taken as the echo; a mismatch is only logged.
func (c *Client) awaitEcho(sent string) error {
	for {
		line, err := c.transport.ReadLine(c.readTimeout)
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r")
		if line == sent {
			return nil
		}
		if telemetry.IsTelemetryLine(line) {
			c.publish(line)
			continue
		}
		monitoring.Warnf("sik: echo mismatch: sent %q, read %q", sent, line)
		return nil
	}
}

// drainReports discards lines until none arrives within one poll interval.
func (c *Client) drainReports() error {
	for i := 0; i < maxDrainLines; i++ {
		line, err := c.transport.ReadLine(c.pollInterval)
		if errors.Is(err, serialmux.ErrTimeout) {
			return nil
		}
		if err != nil {
			return err
		}
		c.publish(strings.TrimRight(line, "\r"))
	}
	monitoring.Warnf("sik: radio still reporting after %d drained lines", maxDrainLines)
	return nil
}

func (c *Client) publish(line string) {
	if c.lines != nil {
		c.lines.Publish(line)
	}
}

// Stream consumes lines from the radio while streaming is enabled. Every line
// is published to the broadcaster; telemetry lines are parsed and passed to
// handle, and malformed ones are dropped. The client lock is only held for
// one poll interval at a time so commands like ToggleRssiDebug can interleave.
// Stream returns nil once the client is disconnected, ctx.Err() on
// cancellation, or an *OpError for a read fault.
func (c *Client) Stream(ctx context.Context, handle func(telemetry.Sample)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.mu.Lock()
		if !c.transport.IsOpen() {
			c.mu.Unlock()
			return nil
		}
		if !c.streaming {
			c.mu.Unlock()
			if err := c.sleepCtx(ctx, c.pollInterval); err != nil {
				return err
			}
			continue
		}
		line, err := c.transport.ReadLine(c.pollInterval)
		c.mu.Unlock()

		if errors.Is(err, serialmux.ErrTimeout) {
			continue
		}
		if err != nil {
			if !c.IsConnected() {
				return nil
			}
			return &OpError{Op: "stream", Err: err}
		}

		line = strings.TrimRight(line, "\r")
		c.publish(line)
		if !telemetry.IsTelemetryLine(line) {
			continue
		}
		sample, err := telemetry.Parse(line)
		if err != nil {
			monitoring.Logf("sik: dropping telemetry line: %v", err)
			continue
		}
		if handle != nil {
			handle(sample)
		}
	}
}

// sleepCtx waits d on the client clock or until ctx is done.
func (c *Client) sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(d):
		return nil
	}
}
