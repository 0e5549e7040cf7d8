package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/vango-dev/vbind/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Mode != ModeNative {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeNative)
	}
	if cfg.Live.Port != DefaultPort {
		t.Errorf("Live.Port = %d, want %d", cfg.Live.Port, DefaultPort)
	}
	if cfg.Live.Host != DefaultHost {
		t.Errorf("Live.Host = %q, want %q", cfg.Live.Host, DefaultHost)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if !errors.HasCode(err, errors.CodeConfigNotFound) {
		t.Fatalf("expected E121 for missing config, got %v", err)
	}

	configJSON := `{
  "mode": "fallback",
  "template": "page.html",
  "live": {
    "port": 8080,
    "host": "0.0.0.0"
  },
  "log": {"level": "debug"},
  "metrics": {"enabled": true}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if !cfg.Fallback() {
		t.Error("Mode should be fallback")
	}
	if cfg.Live.Port != 8080 {
		t.Errorf("Live.Port = %d, want %d", cfg.Live.Port, 8080)
	}
	if cfg.LiveAddress() != "0.0.0.0:8080" {
		t.Errorf("LiveAddress() = %q", cfg.LiveAddress())
	}
	if cfg.Live.Path != DefaultSocketPath {
		t.Errorf("Live.Path = %q, want default", cfg.Live.Path)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if got := cfg.ResolvePath(cfg.Template); got != filepath.Join(tmpDir, "page.html") {
		t.Errorf("ResolvePath() = %q", got)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if !errors.HasCode(err, errors.CodeConfigInvalid) {
		t.Errorf("expected E120, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	if err := cfg.Save(); err == nil {
		t.Error("Save without a path should fail")
	}

	cfg.Mode = ModeFallback
	cfg.Live.Port = 9090
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Mode != ModeFallback || loaded.Live.Port != 9090 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"fallback", func(c *Config) { c.Mode = ModeFallback }, true},
		{"unknown mode", func(c *Config) { c.Mode = "proxy" }, false},
		{"bad port", func(c *Config) { c.Live.Port = 70000 }, false},
		{"relative socket path", func(c *Config) { c.Live.Path = "live" }, false},
		{"bad level", func(c *Config) { c.Log.Level = "chatty" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	if err != nil || level != slog.LevelDebug {
		t.Errorf("ParseLevel(debug) = %v, %v", level, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel should reject unknown levels")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := New().SaveTo(filepath.Join(tmpDir, ConfigFileName)); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot: %v", err)
	}
	want, _ := filepath.Abs(tmpDir)
	if root != want {
		t.Errorf("root = %q, want %q", root, want)
	}
}
