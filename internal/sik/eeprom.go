package sik

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/siklink/internal/monitoring"
	"github.com/banshee-data/siklink/internal/params"
	"github.com/banshee-data/siklink/internal/serialmux"
)

// ReadIdentification queries ATI0..ATI4 and stores the answers in the
// snapshot. The board frequency code is translated to its band label; an
// unknown code fails the whole read and leaves the snapshot untouched.
func (c *Client) ReadIdentification() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireCommandMode(); err != nil {
		return err
	}

	var id params.Identification
	queries := []struct {
		cmd string
		dst *string
	}{
		{cmdBanner, &id.Banner},
		{cmdVersion, &id.Version},
		{cmdBoardID, &id.BoardID},
		{cmdBoardFreq, &id.BoardFrequency},
		{cmdBootloader, &id.BootloaderVersion},
	}
	for _, q := range queries {
		reply, err := c.exchange(q.cmd, true)
		if err != nil {
			return c.failed("read identification", fmt.Errorf("AT%s: %w", q.cmd, err))
		}
		if q.cmd == cmdBoardFreq {
			if reply, err = params.ParseBoardFrequency(reply); err != nil {
				return c.failed("read identification", err)
			}
		}
		*q.dst = reply
	}
	c.config.SetIdentification(id)
	return nil
}

// ReadEepromParameters sends ATI5 and reads the echo followed by one line per
// parameter. Lines for unknown parameter ids are skipped. A fault part way
// through leaves the parameters already read in the snapshot.
func (c *Client) ReadEepromParameters() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireCommandMode(); err != nil {
		return err
	}

	if _, err := c.exchange(cmdDumpParams, false); err != nil {
		return c.failed("read eeprom", err)
	}
	for i := 0; i < eepromLines; i++ {
		line, err := c.transport.ReadLine(c.readTimeout)
		if err != nil {
			return c.failed("read eeprom", fmt.Errorf("line %d: %w", i+1, err))
		}
		id, value, known, err := parseEepromLine(line)
		if err != nil {
			return c.failed("read eeprom", err)
		}
		if !known {
			continue
		}
		if err := c.config.SetText(id, value); err != nil {
			return c.failed("read eeprom", fmt.Errorf("%s: %w", id, err))
		}
	}
	return nil
}

// parseEepromLine splits an ATI5 line of the form "S<id>:<NAME>=<value>".
// known is false for ids outside the parameter table.
func parseEepromLine(line string) (id params.ID, value string, known bool, err error) {
	line = strings.TrimRight(line, "\r")
	eq := strings.LastIndexByte(line, '=')
	colon := strings.IndexByte(line, ':')
	if eq < 0 || colon < 0 || colon > eq {
		return 0, "", false, unexpectedReply(line)
	}
	value = line[eq+1:]

	n, convErr := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(line[:colon]), "S"))
	if convErr != nil || n < 0 || n >= params.Count {
		return 0, "", false, nil
	}
	return params.ID(n), value, true, nil
}

// WriteParameter sends ATS<id>=<value>, formatting value for the parameter's
// kind, and succeeds only on an exact "OK" reply. The snapshot is not changed.
func (c *Client) WriteParameter(id params.ID, value int) error {
	def, err := params.Lookup(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireCommandMode(); err != nil {
		return err
	}
	if err := c.writeParameter(def, value); err != nil {
		return &OpError{Op: "write parameter", Err: err}
	}
	return nil
}

// WriteParameterInt writes an integer parameter.
func (c *Client) WriteParameterInt(id params.ID, value int) error {
	return c.WriteParameter(id, value)
}

// WriteParameterBool writes a boolean parameter as "0" or "1".
func (c *Client) WriteParameterBool(id params.ID, value bool) error {
	v := 0
	if value {
		v = 1
	}
	return c.WriteParameter(id, v)
}

func (c *Client) writeParameter(def params.Definition, value int) error {
	cmd := fmt.Sprintf("S%d=%s", def.ID, params.FormatValue(def.Kind, value))
	reply, err := c.exchange(cmd, true)
	if err != nil {
		return fmt.Errorf("AT%s: %w", cmd, err)
	}
	if reply != replyOK {
		return fmt.Errorf("AT%s: %w", cmd, unexpectedReply(reply))
	}
	return nil
}

// SaveParameters writes every writable parameter of the snapshot in EEPROM
// order, stopping at the first write that is not acknowledged.
func (c *Client) SaveParameters() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireCommandMode(); err != nil {
		return err
	}
	values := c.config.Values()
	for _, id := range params.Writable() {
		def, _ := params.Lookup(id)
		if err := c.writeParameter(def, values[id]); err != nil {
			return c.failed("save parameters", err)
		}
	}
	return nil
}

// SaveToEeprom commits the radio's working parameters with AT&W.
func (c *Client) SaveToEeprom() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireCommandMode(); err != nil {
		return err
	}
	reply, err := c.exchange(cmdCommit, true)
	if err != nil {
		return c.failed("save to eeprom", err)
	}
	if reply != replyOK {
		return c.failed("save to eeprom", unexpectedReply(reply))
	}
	return nil
}

// RebootRadio sends ATZ. The radio resets without acknowledging, so only a
// write fault is reported. The radio restarts in data mode.
func (c *Client) RebootRadio() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireCommandMode(); err != nil {
		return err
	}
	if err := c.transport.WriteLine("AT" + cmdReboot); err != nil {
		return c.failed("reboot", err)
	}
	if echo, err := c.transport.ReadLine(c.readTimeout); err == nil && strings.TrimRight(echo, "\r") != "AT"+cmdReboot {
		monitoring.Warnf("sik: echo mismatch: sent %q, read %q", "AT"+cmdReboot, echo)
	}
	c.commandMode = false
	return nil
}

// maxRawReplyLines caps the reply collected by SendRaw.
const maxRawReplyLines = 64

// SendRaw runs one AT command, given without its "AT" prefix, and returns every
// reply line joined by "\n". Lines are collected until the radio stays quiet
// for one poll interval, so multi-line replies such as I5 are consumed whole.
// A command with no reply returns "" once the read timeout expires.
//
// O and Z return the radio to data mode without a reply, and clear the
// command-mode flag. AT&T commands are refused with ErrRawStreaming because
// they change the streaming state behind the client; use ToggleRssiDebug.
func (c *Client) SendRaw(command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireCommandMode(); err != nil {
		return "", err
	}
	upper := strings.ToUpper(strings.TrimSpace(command))
	if strings.HasPrefix(upper, "&T") {
		return "", ErrRawStreaming
	}
	op := "AT" + command

	if upper == cmdExit || upper == cmdReboot {
		if _, err := c.exchange(command, false); err != nil && !errors.Is(err, serialmux.ErrTimeout) {
			return "", &OpError{Op: op, Err: err}
		}
		c.commandMode = false
		return "", nil
	}

	if _, err := c.exchange(command, false); err != nil {
		return "", &OpError{Op: op, Err: err}
	}
	var reply []string
	wait := c.readTimeout
	for len(reply) < maxRawReplyLines {
		line, err := c.transport.ReadLine(wait)
		if errors.Is(err, serialmux.ErrTimeout) {
			break
		}
		if err != nil {
			return "", &OpError{Op: op, Err: err}
		}
		reply = append(reply, strings.TrimRight(line, "\r"))
		wait = c.pollInterval
	}
	return strings.Join(reply, "\n"), nil
}

func (c *Client) failed(op string, err error) error {
	monitoring.Logf("sik: %s failed: %v", op, err)
	return &OpError{Op: op, Err: err}
}
