// Package simulator emulates SiK radio firmware behind a serial port so the
// protocol client can run without hardware.
package simulator

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/banshee-data/siklink/internal/params"
	"github.com/banshee-data/siklink/internal/serialmux"
	"github.com/banshee-data/siklink/internal/telemetry"
)

// Faults injects firmware misbehaviour.
type Faults struct {
	// EnterReply replaces the "OK" answer to "+++" when non-empty.
	EnterReply string
	// IgnoreEscape makes the radio ignore "+++" entirely.
	IgnoreEscape bool
	// CorruptEcho replaces every command echo with this text when non-empty.
	CorruptEcho string
	// RejectWrites answers ERROR to ATS<id>= for the listed ids.
	RejectWrites map[params.ID]bool
	// EepromLines truncates the ATI5 dump after this many lines when > 0.
	EepromLines int
	// ExtraEepromLine is appended to the ATI5 dump when non-empty.
	ExtraEepromLine string
	// BoardFrequency overrides the ATI3 code when non-zero.
	BoardFrequency int
	// CommitReply replaces the "OK" answer to AT&W when non-empty.
	CommitReply string
}

// Radio is an in-memory SiK radio. It satisfies serialmux.SerialPorter.
type Radio struct {
	*serialmux.TestableSerialPort

	mu          sync.Mutex
	ident       params.Identification
	boardCode   int
	working     params.Values
	stored      params.Values
	commandMode bool
	rssiDebug   bool
	input       strings.Builder
	commands    []string
	faults      Faults
}

// NewRadio returns a radio in data mode holding firmware defaults, reporting
// a 915 MHz board.
func NewRadio() *Radio {
	r := &Radio{
		TestableSerialPort: serialmux.NewTestableSerialPort(),
		ident: params.Identification{
			Banner:            "SiK 2.0 on HM-TRP",
			Version:           "2.0",
			BoardID:           "78",
			BootloaderVersion: "22",
		},
		boardCode: params.BoardFreq915,
		working:   params.Defaults(),
		stored:    params.Defaults(),
	}
	r.OnWrite = r.receive
	return r
}

// Opener returns a serialmux.PortOpener that always hands out r, reopening
// it if a previous connection closed it.
func (r *Radio) Opener() serialmux.PortOpener {
	return func(string, serialmux.PortOptions) (serialmux.SerialPorter, error) {
		r.Reopen()
		return r, nil
	}
}

// SetFaults replaces the injected faults.
func (r *Radio) SetFaults(f Faults) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = f
}

// SetCommandMode forces the firmware mode.
func (r *Radio) SetCommandMode(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commandMode = on
}

func (r *Radio) CommandMode() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commandMode
}

func (r *Radio) RssiDebug() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rssiDebug
}

// SetParameter stores a working value directly, bypassing the AT interface.
func (r *Radio) SetParameter(id params.ID, v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.working[id] = v
}

// Parameters returns the working parameter values.
func (r *Radio) Parameters() params.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.working
}

// Stored returns the values last committed with AT&W.
func (r *Radio) Stored() params.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stored
}

// Commands returns every AT command line received, without terminators.
func (r *Radio) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

// EmitTelemetry queues a telemetry line if RSSI reporting is on and reports
// whether it did.
func (r *Radio) EmitTelemetry(s telemetry.Sample) bool {
	if !r.RssiDebug() {
		return false
	}
	r.AddReadData([]byte(s.String() + "\r\n"))
	return true
}

// EmitLine queues an arbitrary line.
func (r *Radio) EmitLine(line string) {
	r.AddReadData([]byte(line + "\r\n"))
}

func (r *Radio) receive(p []byte) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := string(p)
	if data == "+++" {
		if r.faults.IgnoreEscape {
			return nil
		}
		r.commandMode = true
		reply := "OK"
		if r.faults.EnterReply != "" {
			reply = r.faults.EnterReply
		}
		return []byte(reply + "\r\n")
	}
	if !r.commandMode {
		// Transparent data is sent over the air.
		return nil
	}
	if data == "+" && r.input.Len() == 0 {
		return []byte("+")
	}

	var out strings.Builder
	r.input.WriteString(data)
	for {
		buf := r.input.String()
		i := strings.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		r.input.Reset()
		r.input.WriteString(buf[i+1:])

		line := strings.TrimRight(buf[:i], "\r")
		r.commands = append(r.commands, line)
		echo := line
		if r.faults.CorruptEcho != "" {
			echo = r.faults.CorruptEcho
		}
		out.WriteString(echo + "\r\n")
		for _, reply := range r.execute(line) {
			out.WriteString(reply + "\r\n")
		}
	}
	return []byte(out.String())
}

// execute runs one command line and returns the reply lines. It must be
// called with r.mu held.
func (r *Radio) execute(line string) []string {
	upper := strings.ToUpper(line)
	if !strings.HasPrefix(upper, "AT") {
		return []string{"ERROR"}
	}
	cmd := upper[2:]

	switch cmd {
	case "":
		return nil
	case "I0":
		return []string{r.ident.Banner}
	case "I1":
		return []string{r.ident.Version}
	case "I2":
		return []string{r.ident.BoardID}
	case "I3":
		code := r.boardCode
		if r.faults.BoardFrequency != 0 {
			code = r.faults.BoardFrequency
		}
		return []string{strconv.Itoa(code)}
	case "I4":
		return []string{r.ident.BootloaderVersion}
	case "I5":
		return r.dump()
	case "&W":
		if r.faults.CommitReply != "" {
			return []string{r.faults.CommitReply}
		}
		r.stored = r.working
		return []string{"OK"}
	case "&F":
		r.working = params.Defaults()
		return []string{"OK"}
	case "Z":
		r.working = r.stored
		r.commandMode = false
		r.rssiDebug = false
		return nil
	case "O":
		r.commandMode = false
		return nil
	case "&T=RSSI":
		r.rssiDebug = !r.rssiDebug
		return nil
	case "&T":
		r.rssiDebug = false
		return nil
	}

	if strings.HasPrefix(cmd, "S") {
		return []string{r.register(cmd[1:])}
	}
	return []string{"ERROR"}
}

func (r *Radio) dump() []string {
	defs := params.Definitions()
	lines := make([]string, 0, len(defs)+1)
	for _, def := range defs {
		lines = append(lines, fmt.Sprintf("S%d:%s=%d", def.ID, def.Name, r.working[def.ID]))
	}
	if r.faults.EepromLines > 0 && r.faults.EepromLines < len(lines) {
		lines = lines[:r.faults.EepromLines]
	}
	if r.faults.ExtraEepromLine != "" {
		lines = append(lines, r.faults.ExtraEepromLine)
	}
	return lines
}

// register handles "S<n>=<v>" and "S<n>?".
func (r *Radio) register(arg string) string {
	if name, ok := strings.CutSuffix(arg, "?"); ok {
		n, err := strconv.Atoi(name)
		if err != nil || n < 0 || n >= params.Count {
			return "ERROR"
		}
		return strconv.Itoa(r.working[n])
	}
	name, value, ok := strings.Cut(arg, "=")
	if !ok {
		return "ERROR"
	}
	n, err := strconv.Atoi(name)
	if err != nil || n <= 0 || n >= params.Count {
		return "ERROR"
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return "ERROR"
	}
	if r.faults.RejectWrites[params.ID(n)] {
		return "ERROR"
	}
	r.working[n] = v
	return "OK"
}
