package params

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/siklink/internal/fsutil"
)

// maxSnapshotFileSize bounds snapshot files read from disk.
const maxSnapshotFileSize = 1 << 20

// SaveFile writes the parameter values of cfg to path as a JSON object keyed
// by firmware parameter name. Booleans are written as JSON booleans.
// Identification strings are not persisted. Missing parent directories are
// created.
func SaveFile(fsys fsutil.FileSystem, path string, cfg *Config) error {
	data, err := MarshalValues(cfg.Values())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for parameter file %s: %w", path, err)
		}
	}
	if err := fsys.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write parameter file %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a file written by SaveFile and replaces the parameter values
// of cfg wholesale. Parameters missing from the file revert to the firmware
// default; unknown keys are ignored.
func LoadFile(fsys fsutil.FileSystem, path string, cfg *Config) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return fmt.Errorf("parameter file must have .json extension, got %q", ext)
	}
	info, err := fsys.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat parameter file %s: %w", path, err)
	}
	if info.Size() > maxSnapshotFileSize {
		return fmt.Errorf("parameter file too large: %d bytes (max %d)", info.Size(), maxSnapshotFileSize)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read parameter file %s: %w", path, err)
	}
	values, err := UnmarshalValues(data)
	if err != nil {
		return fmt.Errorf("failed to parse parameter file %s: %w", path, err)
	}
	cfg.Replace(values)
	return nil
}

// MarshalValues encodes values as an indented JSON object keyed by name.
func MarshalValues(v Values) ([]byte, error) {
	out := make(map[string]any, Count)
	for i, def := range table {
		if def.Kind == KindBool {
			out[def.Name] = v[i] != 0
		} else {
			out[def.Name] = v[i]
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// UnmarshalValues decodes a JSON object produced by MarshalValues. Boolean
// parameters also accept 0 and 1.
func UnmarshalValues(data []byte) (Values, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Values{}, err
	}
	values := Defaults()
	for i, def := range table {
		msg, ok := raw[def.Name]
		if !ok {
			continue
		}
		var b bool
		if def.Kind == KindBool && json.Unmarshal(msg, &b) == nil {
			values[i] = normalize(def.Kind, boolToInt(b))
			continue
		}
		var n int
		if err := json.Unmarshal(msg, &n); err != nil {
			return Values{}, fmt.Errorf("%w: %s: %s", ErrInvalidValue, def.Name, string(msg))
		}
		values[i] = normalize(def.Kind, n)
	}
	return values, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
