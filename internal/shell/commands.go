package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/banshee-data/siklink/internal/params"
	"github.com/banshee-data/siklink/internal/security"
	"github.com/banshee-data/siklink/internal/telemetry"
)

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "list serial ports",
		Func: action((*Shell).ports),
	}

	// ConnectCmd opens a serial port.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PORT] [BAUD]",
		Func:    action((*Shell).connect),
	}

	// DisconnectCmd closes the port, leaving command mode first.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "close the port",
		Func:    action((*Shell).disconnect),
	}

	// CheckCmd probes whether the radio is in command mode.
	CheckCmd = ishell.Cmd{
		Name: "check",
		Help: "probe for command mode",
		Func: action(MustBeConnected((*Shell).check)),
	}

	// EnterCmd sends the +++ escape.
	EnterCmd = ishell.Cmd{
		Name:    "enter",
		Aliases: []string{"+++"},
		Help:    "enter command mode",
		Func:    action(MustBeConnected((*Shell).enter)),
	}

	// IdentCmd reads ATI0..ATI4.
	IdentCmd = ishell.Cmd{
		Name:    "ident",
		Aliases: []string{"i"},
		Help:    "read identification",
		Func:    action(MustBeConnected((*Shell).ident)),
	}

	// ReadCmd reads the EEPROM parameters.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "read parameters from the radio",
		Func:    action(MustBeConnected((*Shell).read)),
	}

	// ShowCmd prints the parameter snapshot.
	ShowCmd = ishell.Cmd{
		Name:    "show",
		Aliases: []string{"s"},
		Help:    "print the parameter snapshot",
		Func:    action((*Shell).show),
	}

	// SetCmd changes a parameter in the snapshot.
	SetCmd = ishell.Cmd{
		Name: "set",
		Help: "NAME VALUE",
		Func: action((*Shell).set),
	}

	// WriteCmd writes the snapshot, or one parameter, to the radio.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "[NAME]",
		Func:    action(MustBeConnected((*Shell).write)),
	}

	// CommitCmd stores the radio's parameters in EEPROM.
	CommitCmd = ishell.Cmd{
		Name: "commit",
		Help: "save parameters to EEPROM (AT&W)",
		Func: action(MustBeConnected((*Shell).commit)),
	}

	// RebootCmd reboots the radio.
	RebootCmd = ishell.Cmd{
		Name: "reboot",
		Help: "reboot the radio (ATZ)",
		Func: action(MustBeConnected((*Shell).reboot)),
	}

	// RssiCmd toggles or watches the link-quality report.
	RssiCmd = ishell.Cmd{
		Name: "rssi",
		Help: "[watch SECONDS]",
		Func: action(MustBeConnected((*Shell).rssi)),
	}

	// SaveCmd writes the snapshot to a JSON file.
	SaveCmd = ishell.Cmd{
		Name: "save",
		Help: "FILE.json",
		Func: action((*Shell).save),
	}

	// LoadCmd replaces the snapshot from a JSON file.
	LoadCmd = ishell.Cmd{
		Name: "load",
		Help: "FILE.json",
		Func: action((*Shell).load),
	}

	// RawCmd sends one AT command and prints the reply.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "COMMAND (with or without the AT prefix)",
		Func: action(MustBeConnected((*Shell).raw)),
	}
)

func (s *Shell) ports(w io.Writer, _ []string) error {
	ports, err := s.ListPorts()
	if err != nil {
		return err
	}
	if s.OutputJSON {
		if ports == nil {
			ports = []string{}
		}
		return s.printJSON(w, ports)
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}

func (s *Shell) connect(w io.Writer, args []string) error {
	port, baud := s.Port, s.Baud
	if len(args) > 0 {
		port = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid BAUD: %v", err)
		}
		baud = n
	}
	if err := s.Client.Connect(port, baud); err != nil {
		return err
	}
	s.updatePrompt()
	fmt.Fprintf(w, "Connected to %s at %d baud\n", port, baud)
	return nil
}

func (s *Shell) disconnect(w io.Writer, _ []string) error {
	err := s.Client.Disconnect()
	s.updatePrompt()
	return err
}

func (s *Shell) check(w io.Writer, _ []string) error {
	in, err := s.Client.CheckCommandMode()
	if err != nil {
		return err
	}
	s.updatePrompt()
	if in {
		fmt.Fprintln(w, "In command mode")
	} else {
		fmt.Fprintln(w, "Not in command mode")
	}
	return nil
}

func (s *Shell) enter(w io.Writer, _ []string) error {
	if err := s.Client.EnterCommandMode(); err != nil {
		return err
	}
	s.updatePrompt()
	fmt.Fprintln(w, "OK")
	return nil
}

func (s *Shell) ident(w io.Writer, _ []string) error {
	if err := s.Client.ReadIdentification(); err != nil {
		return err
	}
	id := s.Client.Config().Identification()
	if s.OutputJSON {
		return s.printJSON(w, id)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Banner:\t%s\n", id.Banner)
	fmt.Fprintf(tw, "Version:\t%s\n", id.Version)
	fmt.Fprintf(tw, "Board ID:\t%s\n", id.BoardID)
	fmt.Fprintf(tw, "Frequency:\t%s\n", id.BoardFrequency)
	fmt.Fprintf(tw, "Bootloader:\t%s\n", id.BootloaderVersion)
	return tw.Flush()
}

func (s *Shell) read(w io.Writer, args []string) error {
	if err := s.Client.ReadEepromParameters(); err != nil {
		return err
	}
	return s.show(w, args)
}

func (s *Shell) show(w io.Writer, _ []string) error {
	cfg := s.Client.Config()
	if s.OutputJSON {
		data, err := params.MarshalValues(cfg.Values())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVALUE")
	for _, def := range params.Definitions() {
		fmt.Fprintf(tw, "S%d\t%s\t%s\n", def.ID, def.Name, cfg.Text(def.ID))
	}
	return tw.Flush()
}

// parseSetting resolves NAME (firmware name or S<n>) and VALUE. Booleans
// accept 1/0, true/false and on/off.
func parseSetting(name, value string) (params.Definition, int, error) {
	def, err := params.ByName(name)
	if err != nil {
		idx, convErr := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(name), "S"))
		if convErr != nil {
			return def, 0, err
		}
		if def, err = params.Lookup(params.ID(idx)); err != nil {
			return def, 0, err
		}
	}
	var v int
	if def.Kind == params.KindBool {
		switch strings.ToLower(value) {
		case "1", "true", "on", "yes":
			v = 1
		case "0", "false", "off", "no":
			v = 0
		default:
			return def, 0, fmt.Errorf("%w: %s expects a boolean, got %q", params.ErrInvalidValue, def.Name, value)
		}
	} else {
		n, err := strconv.Atoi(value)
		if err != nil {
			return def, 0, fmt.Errorf("%w: %s expects an integer, got %q", params.ErrInvalidValue, def.Name, value)
		}
		v = n
	}
	if err := params.Validate(def.ID, v); err != nil {
		return def, 0, err
	}
	return def, v, nil
}

func (s *Shell) set(w io.Writer, args []string) error {
	if len(args) != 2 {
		return usage("set", "NAME VALUE")
	}
	def, v, err := parseSetting(args[0], args[1])
	if err != nil {
		return err
	}
	if err := s.Client.Config().SetInt(def.ID, v); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s=%s\n", def.Name, s.Client.Config().Text(def.ID))
	return nil
}

func (s *Shell) write(w io.Writer, args []string) error {
	if len(args) == 0 {
		if err := s.Client.SaveParameters(); err != nil {
			return err
		}
		fmt.Fprintln(w, "Parameters written; use commit to store them in EEPROM")
		return nil
	}
	def, err := params.ByName(args[0])
	if err != nil {
		return err
	}
	if err := s.Client.WriteParameter(def.ID, s.Client.Config().Value(def.ID)); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s written\n", def.Name)
	return nil
}

func (s *Shell) commit(w io.Writer, _ []string) error {
	if err := s.Client.SaveToEeprom(); err != nil {
		return err
	}
	fmt.Fprintln(w, "Saved to EEPROM")
	return nil
}

func (s *Shell) reboot(w io.Writer, _ []string) error {
	if err := s.Client.RebootRadio(); err != nil {
		return err
	}
	s.updatePrompt()
	fmt.Fprintln(w, "Rebooting")
	return nil
}

func (s *Shell) rssi(w io.Writer, args []string) error {
	if len(args) == 0 {
		if err := s.Client.ToggleRssiDebug(); err != nil {
			return err
		}
		fmt.Fprintf(w, "RSSI reporting %s\n", onOff(s.Client.StreamingEnabled()))
		return nil
	}
	if args[0] != "watch" {
		return usage("rssi", "[watch SECONDS]")
	}
	d := 10 * time.Second
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid SECONDS %q", args[1])
		}
		d = time.Duration(n) * time.Second
	}
	return s.watch(w, d)
}

// watch enables the link-quality report if needed, prints samples for d and
// restores the previous reporting state.
func (s *Shell) watch(w io.Writer, d time.Duration) error {
	wasOn := s.Client.StreamingEnabled()
	if !wasOn {
		if err := s.Client.ToggleRssiDebug(); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	window := telemetry.NewWindow(2 * int(d/time.Second))
	err := s.Client.Stream(ctx, func(sample telemetry.Sample) {
		window.Add(time.Now(), sample)
		fmt.Fprintln(w, sample.String())
	})
	if errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if !wasOn && s.Client.IsConnected() {
		if toggleErr := s.Client.ToggleRssiDebug(); err == nil {
			err = toggleErr
		}
	}
	if sum := telemetry.Summarize(window.Samples()); sum.Count > 0 {
		fmt.Fprintf(w, "%d samples: local RSSI %.1f±%.1f, remote RSSI %.1f±%.1f, margin %.1f/%.1f\n",
			sum.Count, sum.LocalRssi.Mean, sum.LocalRssi.StdDev,
			sum.RemoteRssi.Mean, sum.RemoteRssi.StdDev, sum.LocalMargin, sum.RemoteMargin)
	}
	return err
}

func (s *Shell) save(w io.Writer, args []string) error {
	if len(args) != 1 {
		return usage("save", "FILE.json")
	}
	if err := security.ValidateParamFilePath(args[0]); err != nil {
		return err
	}
	if err := params.SaveFile(s.FS, args[0], s.Client.Config()); err != nil {
		return err
	}
	fmt.Fprintf(w, "Saved %s\n", args[0])
	return nil
}

func (s *Shell) load(w io.Writer, args []string) error {
	if len(args) != 1 {
		return usage("load", "FILE.json")
	}
	if err := params.LoadFile(s.FS, args[0], s.Client.Config()); err != nil {
		return err
	}
	fmt.Fprintf(w, "Loaded %s; use write to send it to the radio\n", args[0])
	return nil
}

func (s *Shell) raw(w io.Writer, args []string) error {
	if len(args) == 0 {
		return usage("raw", "COMMAND")
	}
	cmd := strings.Join(args, " ")
	if len(cmd) >= 2 && strings.EqualFold(cmd[:2], "AT") {
		cmd = cmd[2:]
	}
	reply, err := s.Client.SendRaw(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, reply)
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
