package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/banshee-data/siklink/internal/serialmux"
	"github.com/banshee-data/siklink/internal/shell"
	"github.com/banshee-data/siklink/internal/sik"
	"github.com/banshee-data/siklink/internal/simulator"
	"github.com/banshee-data/siklink/internal/version"
)

var (
	port        = flag.String("port", "/dev/ttyUSB0", "Serial port used by connect when none is given")
	baud        = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate used by connect")
	readTimeout = flag.Duration("read-timeout", sik.DefaultReadTimeout, "Per-line read timeout")
	devMode     = flag.Bool("dev", false, "Use a simulated radio instead of a serial port")
	autoConnect = flag.Bool("connect", false, "Connect and enter command mode before running")
	evalOnly    = flag.Bool("e", false, "Evaluation only, no interactive shell")
	outputJSON  = flag.Bool("json", false, "Print output in JSON")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}

	opener := serialmux.PortOpener(serialmux.OpenSerialPort)
	if *devMode {
		opener = simulator.NewRadio().Opener()
	}
	client := sik.NewClient(
		serialmux.NewLineTransport(opener, serialmux.PortOptions{BaudRate: *baud}),
		sik.WithReadTimeout(*readTimeout),
	)

	s := shell.New(client)
	s.Interactive = !*evalOnly
	s.OutputJSON = *outputJSON
	s.Port = *port
	s.Baud = *baud
	defer s.Close()

	if *autoConnect {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", *port)
		}
		if err := s.Connect(*port, *baud, true); err != nil {
			log.Fatalf("connect %q failed: %v", *port, err)
		}
	}
	s.Run(flag.Args()...)
}
