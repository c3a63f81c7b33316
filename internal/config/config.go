// Package config holds the siklink tool configuration. Every field is
// optional; the Get* accessors fall back to defaults for unset fields.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/siklink/internal/serialmux"
)

// Defaults for unset fields.
const (
	DefaultPort               = "/dev/ttyUSB0"
	DefaultReadTimeout        = time.Second
	DefaultPollInterval       = 100 * time.Millisecond
	DefaultListen             = ":8080"
	DefaultDBPath             = "siklink.db"
	DefaultMQTTTopic          = "siklink/telemetry"
	DefaultTelemetryWindow    = 120
	DefaultTelemetryRetention = 7 * 24 * time.Hour
)

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// Config is the JSON configuration file.
type Config struct {
	// Serial link
	Port     *string `json:"port,omitempty"`
	BaudRate *int    `json:"baud_rate,omitempty"`
	DataBits *int    `json:"data_bits,omitempty"`
	StopBits *int    `json:"stop_bits,omitempty"`
	Parity   *string `json:"parity,omitempty"`

	// Protocol timing
	ReadTimeout  *string `json:"read_timeout,omitempty"`  // duration string like "1s"
	PollInterval *string `json:"poll_interval,omitempty"` // duration string like "100ms"

	// Daemon
	Listen             *string `json:"listen,omitempty"`
	DBPath             *string `json:"db_path,omitempty"`
	RecordTelemetry    *bool   `json:"record_telemetry,omitempty"`
	TelemetryRetention *string `json:"telemetry_retention,omitempty"` // "0" keeps everything
	TelemetryWindow    *int    `json:"telemetry_window,omitempty"`

	// MQTT
	MQTTBroker *string `json:"mqtt_broker,omitempty"` // empty disables publishing
	MQTTTopic  *string `json:"mqtt_topic,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The file must have a .json
// extension and be at most 1MB. Fields omitted from the file keep their
// defaults.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Port != nil && *c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if _, err := c.PortOptions().Normalize(); err != nil {
		return err
	}

	durations := []struct {
		name string
		v    *string
	}{
		{"read_timeout", c.ReadTimeout},
		{"poll_interval", c.PollInterval},
		{"telemetry_retention", c.TelemetryRetention},
	}
	for _, d := range durations {
		if d.v == nil || *d.v == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.v, err)
		}
		if parsed < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", d.name, *d.v)
		}
	}
	if c.ReadTimeout != nil && *c.ReadTimeout != "" && c.GetReadTimeout() == 0 {
		return fmt.Errorf("read_timeout must be positive")
	}

	if c.TelemetryWindow != nil && *c.TelemetryWindow < 1 {
		return fmt.Errorf("telemetry_window must be at least 1, got %d", *c.TelemetryWindow)
	}
	if c.MQTTTopic != nil && *c.MQTTTopic == "" {
		return fmt.Errorf("mqtt_topic must not be empty")
	}
	return nil
}

func parseDuration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetPort returns the serial port path or the default.
func (c *Config) GetPort() string {
	if c.Port == nil {
		return DefaultPort
	}
	return *c.Port
}

// PortOptions returns the serial line settings. Unset fields are zero and
// are filled in by PortOptions.Normalize.
func (c *Config) PortOptions() serialmux.PortOptions {
	var opts serialmux.PortOptions
	if c.BaudRate != nil {
		opts.BaudRate = *c.BaudRate
	}
	if c.DataBits != nil {
		opts.DataBits = *c.DataBits
	}
	if c.StopBits != nil {
		opts.StopBits = *c.StopBits
	}
	if c.Parity != nil {
		opts.Parity = *c.Parity
	}
	return opts
}

// GetBaudRate returns the baud rate or the default.
func (c *Config) GetBaudRate() int {
	if c.BaudRate == nil {
		return serialmux.DefaultBaudRate
	}
	return *c.BaudRate
}

// GetReadTimeout returns the per-line read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.ReadTimeout, DefaultReadTimeout)
}

// GetPollInterval returns the streaming poll interval.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.PollInterval, DefaultPollInterval)
}

// GetListen returns the HTTP listen address or the default.
func (c *Config) GetListen() string {
	if c.Listen == nil {
		return DefaultListen
	}
	return *c.Listen
}

// GetDBPath returns the sqlite path or the default. An empty path disables
// the database.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetRecordTelemetry reports whether telemetry samples are stored.
func (c *Config) GetRecordTelemetry() bool {
	if c.RecordTelemetry == nil {
		return false
	}
	return *c.RecordTelemetry
}

// GetTelemetryRetention returns how long recorded samples are kept. Zero
// keeps samples forever.
func (c *Config) GetTelemetryRetention() time.Duration {
	return parseDuration(c.TelemetryRetention, DefaultTelemetryRetention)
}

// GetTelemetryWindow returns the number of samples summarised by the API.
func (c *Config) GetTelemetryWindow() int {
	if c.TelemetryWindow == nil {
		return DefaultTelemetryWindow
	}
	return *c.TelemetryWindow
}

// GetMQTTBroker returns the broker URL, or "" when publishing is disabled.
func (c *Config) GetMQTTBroker() string {
	if c.MQTTBroker == nil {
		return ""
	}
	return *c.MQTTBroker
}

// GetMQTTTopic returns the telemetry topic or the default.
func (c *Config) GetMQTTTopic() string {
	if c.MQTTTopic == nil {
		return DefaultMQTTTopic
	}
	return *c.MQTTTopic
}

// Override setters used by command-line flags.

// SetPort sets the serial port path.
func (c *Config) SetPort(v string) { c.Port = ptrString(v) }

// SetBaudRate sets the baud rate.
func (c *Config) SetBaudRate(v int) { c.BaudRate = ptrInt(v) }

// SetListen sets the HTTP listen address.
func (c *Config) SetListen(v string) { c.Listen = ptrString(v) }

// SetDBPath sets the sqlite path.
func (c *Config) SetDBPath(v string) { c.DBPath = ptrString(v) }

// SetRecordTelemetry enables or disables telemetry recording.
func (c *Config) SetRecordTelemetry(v bool) { c.RecordTelemetry = ptrBool(v) }

// SetMQTTBroker sets the broker URL.
func (c *Config) SetMQTTBroker(v string) { c.MQTTBroker = ptrString(v) }

// SetMQTTTopic sets the telemetry topic.
func (c *Config) SetMQTTTopic(v string) { c.MQTTTopic = ptrString(v) }
