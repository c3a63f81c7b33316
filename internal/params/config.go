package params

import (
	"sync"

	"github.com/google/uuid"
)

// Identification holds the radio's ATI0..ATI4 answers.
type Identification struct {
	Banner            string `json:"banner"`
	Version           string `json:"version"`
	BoardID           string `json:"board_id"`
	BoardFrequency    string `json:"board_frequency"`
	BootloaderVersion string `json:"bootloader_version"`
}

// Change describes one mutated field of a Config. Field is the firmware
// parameter name, or the identification field name for identification
// changes. Old and New are wire-format text.
type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Config is the in-memory snapshot of a radio's identification and EEPROM
// parameters. A new Config holds the firmware defaults and an empty
// identification.
type Config struct {
	mu        sync.Mutex
	values    Values
	ident     Identification
	listeners map[string]func(Change)
}

// NewConfig returns a snapshot initialised to the firmware defaults.
func NewConfig() *Config {
	return &Config{
		values:    Defaults(),
		listeners: make(map[string]func(Change)),
	}
}

// Subscribe registers fn to be called once per changed field and returns an
// id for Unsubscribe. Listeners run synchronously on the mutating goroutine.
func (c *Config) Subscribe(fn func(Change)) string {
	id := uuid.NewString()
	c.mu.Lock()
	c.listeners[id] = fn
	c.mu.Unlock()
	return id
}

// Unsubscribe removes a listener. Unknown ids are ignored.
func (c *Config) Unsubscribe(id string) {
	c.mu.Lock()
	delete(c.listeners, id)
	c.mu.Unlock()
}

// Value returns the stored value of id, booleans as 0 or 1.
func (c *Config) Value(id ID) int {
	if int(id) >= Count {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[id]
}

// Int returns the value of an integer parameter.
func (c *Config) Int(id ID) int { return c.Value(id) }

// Bool returns the value of a boolean parameter.
func (c *Config) Bool(id ID) bool { return c.Value(id) != 0 }

// Text returns the wire-format text of id.
func (c *Config) Text(id ID) string {
	def, err := Lookup(id)
	if err != nil {
		return ""
	}
	return FormatValue(def.Kind, c.Value(id))
}

// SetInt stores v for id. Boolean parameters store any non-zero v as 1.
func (c *Config) SetInt(id ID, v int) error {
	def, err := Lookup(id)
	if err != nil {
		return err
	}
	c.set(def, v)
	return nil
}

// SetBool stores b for id.
func (c *Config) SetBool(id ID, b bool) error {
	v := 0
	if b {
		v = 1
	}
	return c.SetInt(id, v)
}

// SetText parses wire text for id and stores the result.
func (c *Config) SetText(id ID, text string) error {
	def, err := Lookup(id)
	if err != nil {
		return err
	}
	v, err := ParseValue(def.Kind, text)
	if err != nil {
		return err
	}
	c.set(def, v)
	return nil
}

func (c *Config) set(def Definition, v int) {
	v = normalize(def.Kind, v)
	c.mu.Lock()
	old := c.values[def.ID]
	c.values[def.ID] = v
	c.mu.Unlock()
	if old != v {
		c.notify(Change{Field: def.Name, Old: FormatValue(def.Kind, old), New: FormatValue(def.Kind, v)})
	}
}

// Values returns a copy of all parameter values.
func (c *Config) Values() Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values
}

// Replace overwrites every parameter value, notifying once per field that
// actually changed.
func (c *Config) Replace(v Values) {
	for i, def := range table {
		c.set(def, v[i])
	}
}

// Identification returns the current identification strings.
func (c *Config) Identification() Identification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ident
}

// SetIdentification overwrites the identification strings.
func (c *Config) SetIdentification(id Identification) {
	c.mu.Lock()
	old := c.ident
	c.ident = id
	c.mu.Unlock()

	fields := []struct {
		name     string
		old, new string
	}{
		{"banner", old.Banner, id.Banner},
		{"version", old.Version, id.Version},
		{"board_id", old.BoardID, id.BoardID},
		{"board_frequency", old.BoardFrequency, id.BoardFrequency},
		{"bootloader_version", old.BootloaderVersion, id.BootloaderVersion},
	}
	for _, f := range fields {
		if f.old != f.new {
			c.notify(Change{Field: f.name, Old: f.old, New: f.new})
		}
	}
}

func (c *Config) notify(ch Change) {
	c.mu.Lock()
	fns := make([]func(Change), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}
