package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	safeDir := filepath.Join(tmpDir, "params")
	otherDir := filepath.Join(tmpDir, "other")
	for _, d := range []string{safeDir, otherDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	link := filepath.Join(safeDir, "link")
	if err := os.Symlink(otherDir, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{"new file in dir", filepath.Join(safeDir, "radio.json"), false},
		{"nested new file", filepath.Join(safeDir, "a", "b", "radio.json"), false},
		{"dot dot escape", filepath.Join(safeDir, "..", "other", "radio.json"), true},
		{"absolute outside", "/etc/passwd", true},
		{"symlink escape", filepath.Join(link, "radio.json"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantError %v", tt.filePath, err, tt.wantError)
			}
		})
	}
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()

	if err := ValidatePathWithinAllowedDirs(filepath.Join(dir2, "radio.json"), []string{dir1, dir2}); err != nil {
		t.Errorf("path in second dir rejected: %v", err)
	}
	if err := ValidatePathWithinAllowedDirs("/etc/passwd", []string{dir1, dir2}); err == nil {
		t.Error("path outside all dirs accepted")
	}
	if err := ValidatePathWithinAllowedDirs(filepath.Join(dir1, "radio.json"), nil); err == nil {
		t.Error("empty allow list accepted")
	}
}

func TestValidateParamFilePath(t *testing.T) {
	t.Chdir(t.TempDir())

	for _, p := range []string{"radio.json", filepath.Join("profiles", "long-range.json"), filepath.Join(os.TempDir(), "radio.json")} {
		if err := ValidateParamFilePath(p); err != nil {
			t.Errorf("ValidateParamFilePath(%q) = %v", p, err)
		}
	}
	if err := ValidateParamFilePath("/etc/siklink/radio.json"); err == nil {
		t.Error("expected /etc path to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"siklink.db":          "siklink.db",
		"radio 1/port:ttyUSB": "radio_1_port_ttyUSB",
		"__x__":               "x",
		"":                    "unknown",
		"///":                 "unknown",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
	if got := SanitizeFilename(strings.Repeat("a", 300)); len(got) != 128 {
		t.Errorf("long name length = %d, want 128", len(got))
	}
}
