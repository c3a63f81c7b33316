package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/siklink/internal/api"
	"github.com/banshee-data/siklink/internal/config"
	"github.com/banshee-data/siklink/internal/db"
	"github.com/banshee-data/siklink/internal/params"
	"github.com/banshee-data/siklink/internal/publish"
	"github.com/banshee-data/siklink/internal/serialmux"
	"github.com/banshee-data/siklink/internal/sik"
	"github.com/banshee-data/siklink/internal/simulator"
	"github.com/banshee-data/siklink/internal/telemetry"
	"github.com/banshee-data/siklink/internal/timeutil"
	"github.com/banshee-data/siklink/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to JSON configuration file")
	devMode     = flag.Bool("dev", false, "Use a simulated radio instead of a serial port")
	listen      = flag.String("listen", config.DefaultListen, "HTTP listen address")
	port        = flag.String("port", config.DefaultPort, "Serial port the radio is attached to")
	baud        = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	dbPath      = flag.String("db", config.DefaultDBPath, "sqlite database path (empty disables storage)")
	listPorts   = flag.Bool("list-ports", false, "List serial ports and exit")
	record      = flag.Bool("record", false, "Record telemetry samples in the database")
	mqttBroker  = flag.String("mqtt", "", "MQTT broker URL for telemetry publishing, e.g. mqtt://host:1883")
	mqttTopic   = flag.String("mqtt-topic", config.DefaultMQTTTopic, "MQTT topic for telemetry")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// simulatorInterval is how often the dev-mode radio emits telemetry.
const simulatorInterval = time.Second

// applyFlags copies explicitly set flags over the file configuration.
func applyFlags(cfg *config.Config, set map[string]bool) {
	if set["port"] {
		cfg.SetPort(*port)
	}
	if set["baud"] {
		cfg.SetBaudRate(*baud)
	}
	if set["listen"] {
		cfg.SetListen(*listen)
	}
	if set["db"] {
		cfg.SetDBPath(*dbPath)
	}
	if set["record"] {
		cfg.SetRecordTelemetry(*record)
	}
	if set["mqtt"] {
		cfg.SetMQTTBroker(*mqttBroker)
	}
	if set["mqtt-topic"] {
		cfg.SetMQTTTopic(*mqttTopic)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.EmptyConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadConfig(*configFile); err != nil {
			return nil, err
		}
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyFlags(cfg, set)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// prepareRadio puts the radio in command mode and reads its identification
// and parameters. Failures are logged; the API can retry them.
func prepareRadio(client *sik.Client) {
	in, err := client.CheckCommandMode()
	if err != nil {
		log.Printf("command mode check failed: %v", err)
		return
	}
	if !in {
		if err := client.EnterCommandMode(); err != nil {
			log.Printf("failed to enter command mode: %v", err)
			return
		}
	}
	if err := client.ReadIdentification(); err != nil {
		log.Printf("failed to read identification: %v", err)
	} else {
		id := client.Config().Identification()
		log.Printf("radio: %s, board %s, %s MHz, bootloader %s", id.Banner, id.BoardID, id.BoardFrequency, id.BootloaderVersion)
	}
	if err := client.ReadEepromParameters(); err != nil {
		log.Printf("failed to read parameters: %v", err)
	}
}

// telemetrySink receives every parsed sample from the stream.
type telemetrySink struct {
	clock     timeutil.Clock
	window    *telemetry.Window
	db        *db.DB
	publisher *publish.MQTTPublisher
}

func (s *telemetrySink) handle(sample telemetry.Sample) {
	obs := s.window.Add(s.clock.Now(), sample)
	if s.db != nil {
		if err := s.db.RecordTelemetry(obs.Time, sample); err != nil {
			log.Printf("failed to record telemetry: %v", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishObservation(obs); err != nil {
			log.Printf("failed to publish telemetry: %v", err)
		}
	}
}

// pruneInterval is how often recorded telemetry is checked against the
// retention window.
const pruneInterval = time.Hour

// pruneTelemetry deletes recorded samples older than retention, once at start
// and then every pruneInterval until ctx is done.
func pruneTelemetry(ctx context.Context, clock timeutil.Clock, database *db.DB, retention time.Duration) {
	for {
		n, err := database.PruneTelemetry(clock.Now().Add(-retention))
		if err != nil {
			log.Printf("failed to prune telemetry: %v", err)
		} else if n > 0 {
			log.Printf("pruned %d telemetry samples older than %s", n, retention)
		}
		select {
		case <-ctx.Done():
			return
		case <-clock.After(pruneInterval):
		}
	}
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listPorts {
		ports, err := serialmux.ListPorts()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(flag.Args()[1:], cfg.GetDBPath()); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	var wg sync.WaitGroup

	opener := serialmux.PortOpener(serialmux.OpenSerialPort)
	if *devMode {
		radio := simulator.NewRadio()
		opener = radio.Opener()
		wg.Add(1)
		go func() {
			defer wg.Done()
			radio.Run(ctx, simulatorInterval)
		}()
		log.Printf("dev mode: using simulated radio")
	}

	lines := serialmux.NewBroadcaster()
	defer lines.Close()
	client := sik.NewClient(
		serialmux.NewLineTransport(opener, cfg.PortOptions()),
		sik.WithReadTimeout(cfg.GetReadTimeout()),
		sik.WithPollInterval(cfg.GetPollInterval()),
		sik.WithBroadcaster(lines),
	)
	if err := client.Connect(cfg.GetPort(), cfg.GetBaudRate()); err != nil {
		log.Fatalf("failed to open radio: %v", err)
	}
	defer func() {
		if err := client.Disconnect(); err != nil {
			log.Printf("disconnect: %v", err)
		}
	}()
	log.Printf("connected to %s at %d baud", cfg.GetPort(), cfg.GetBaudRate())

	var database *db.DB
	if path := cfg.GetDBPath(); path != "" {
		database, err = db.NewDB(path)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()
	}

	var publisher *publish.MQTTPublisher
	if broker := cfg.GetMQTTBroker(); broker != "" {
		publisher, err = publish.NewMQTTPublisher(broker, cfg.GetMQTTTopic())
		if err != nil {
			log.Fatalf("invalid MQTT broker: %v", err)
		}
		if err := publisher.Connect(); err != nil {
			log.Printf("MQTT disabled: %v", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	prepareRadio(client)

	if publisher != nil {
		// Republish the retained snapshot whenever it changes.
		changed := make(chan struct{}, 1)
		id := client.Config().Subscribe(func(ch params.Change) {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		defer client.Config().Unsubscribe(id)
		changed <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-changed:
					if err := publisher.PublishParams(client.Config()); err != nil {
						log.Printf("failed to publish parameters: %v", err)
					}
				}
			}
		}()
	}

	clock := timeutil.RealClock{}
	sink := &telemetrySink{clock: clock, window: telemetry.NewWindow(cfg.GetTelemetryWindow()), publisher: publisher}
	if cfg.GetRecordTelemetry() {
		if database == nil {
			log.Printf("telemetry recording needs a database; not recording")
		} else {
			sink.db = database
			if retention := cfg.GetTelemetryRetention(); retention > 0 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					pruneTelemetry(ctx, clock, database, retention)
				}()
			}
		}
	}

	// stream telemetry while RSSI reporting is enabled
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := client.Stream(ctx, sink.handle); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("telemetry stream stopped: %v", err)
		}
		log.Print("stream routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(client, database, sink.window).ServeMux()
		serialmux.AttachAdminRoutes(mux, client, lines)
		if database != nil {
			if err := database.AttachAdminRoutes(mux); err != nil {
				log.Printf("failed to attach database admin routes: %v", err)
			}
		}

		server := &http.Server{
			Addr:    cfg.GetListen(),
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("HTTP API listening on %s", cfg.GetListen())
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("failed to start server: %v", err)
				stop()
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
