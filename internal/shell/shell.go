// Package shell is an interactive console for configuring a SiK radio.
package shell

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/banshee-data/siklink/internal/fsutil"
	"github.com/banshee-data/siklink/internal/serialmux"
	"github.com/banshee-data/siklink/internal/sik"
)

// Shell provides an ishell backed console around one client.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	// Port and Baud are used by "connect" when no arguments are given.
	Port string
	Baud int

	Shell     *ishell.Shell
	Client    *sik.Client
	FS        fsutil.FileSystem
	ListPorts func() ([]string, error)
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var commands = []*ishell.Cmd{
	&PortsCmd,
	&ConnectCmd,
	&DisconnectCmd,
	&CheckCmd,
	&EnterCmd,
	&IdentCmd,
	&ReadCmd,
	&ShowCmd,
	&SetCmd,
	&WriteCmd,
	&CommitCmd,
	&RebootCmd,
	&RssiCmd,
	&SaveCmd,
	&LoadCmd,
	&RawCmd,
}

// New creates a shell for client with an ishell console attached.
func New(client *sik.Client) *Shell {
	s := &Shell{
		Interactive: true,
		Port:        "/dev/ttyUSB0",
		Baud:        serialmux.DefaultBaudRate,
		Shell:       ishell.New(),
		Client:      client,
		FS:          fsutil.OSFileSystem{},
		ListPorts:   serialmux.ListPorts,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// contextWriter adapts an ishell context to io.Writer.
type contextWriter struct{ c *ishell.Context }

func (w contextWriter) Write(p []byte) (int, error) {
	w.c.Print(string(p))
	return len(p), nil
}

// action adapts a Shell method to an ishell command func.
func action(fn func(s *Shell, w io.Writer, args []string) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if err := fn(ShellFrom(c), contextWriter{c}, c.Args); err != nil {
			c.Err(err)
		}
	}
}

// MustBeConnected wraps a command that needs an open port.
func MustBeConnected(fn func(s *Shell, w io.Writer, args []string) error) func(s *Shell, w io.Writer, args []string) error {
	return func(s *Shell, w io.Writer, args []string) error {
		if !s.Client.IsConnected() {
			return sik.ErrNotConnected
		}
		return fn(s, w, args)
	}
}

func (s *Shell) updatePrompt() {
	if s.Shell == nil {
		return
	}
	switch s.Client.State() {
	case sik.StateDisconnected:
		s.Shell.SetPrompt(unconnectedPrompt)
	case sik.StateCommandMode:
		s.Shell.SetPrompt(fmt.Sprintf("[%s AT] > ", s.Client.PortName()))
	default:
		s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", s.Client.PortName()))
	}
}

func (s *Shell) printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// Connect opens port and, when enter is set, switches the radio into
// command mode.
func (s *Shell) Connect(port string, baud int, enter bool) error {
	if err := s.Client.Connect(port, baud); err != nil {
		return err
	}
	defer s.updatePrompt()
	if !enter {
		return nil
	}
	in, err := s.Client.CheckCommandMode()
	if err != nil || in {
		return err
	}
	return s.Client.EnterCommandMode()
}

// Run runs args as a single command, or the interactive console when args
// is empty.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Close disconnects the client.
func (s *Shell) Close() {
	if err := s.Client.Disconnect(); err != nil {
		log.Printf("disconnect: %v", err)
	}
	if s.Shell != nil {
		s.Shell.Close()
	}
}

func usage(cmd, help string) error {
	return fmt.Errorf("usage: %s %s", cmd, help)
}
