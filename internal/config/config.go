package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vango-dev/vbind/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vbind.json"

	// DefaultPort is the default live server port.
	DefaultPort = 3000

	// DefaultHost is the default live server host.
	DefaultHost = "localhost"

	// DefaultSocketPath is the websocket route of the live server.
	DefaultSocketPath = "/_vbind/live"

	// DefaultMetricsPath is the prometheus route of the live server.
	DefaultMetricsPath = "/metrics"

	// DefaultNamespace is the metrics namespace.
	DefaultNamespace = "vbind"
)

// Interception modes.
const (
	ModeNative   = "native"
	ModeFallback = "fallback"
)

// Config represents the complete vbind.json configuration.
type Config struct {
	// Mode selects how array length notifications are delivered:
	// "native" notifies synchronously, "fallback" defers to the task queue.
	Mode string `json:"mode,omitempty"`

	// Template is the default template file used by the CLI.
	Template string `json:"template,omitempty"`

	// Data is the default data file used by the CLI.
	Data string `json:"data,omitempty"`

	// Live contains live server configuration.
	Live LiveConfig `json:"live,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// Metrics contains prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LiveConfig contains live server settings.
type LiveConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Path is the websocket route.
	Path string `json:"path,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// File, when set, receives JSON log records in addition to stderr.
	File string `json:"file,omitempty"`
}

// MetricsConfig contains prometheus settings.
type MetricsConfig struct {
	// Enabled exposes the metrics route on the live server.
	Enabled bool `json:"enabled,omitempty"`

	// Namespace is the metric namespace.
	Namespace string `json:"namespace,omitempty"`

	// Path is the metrics route.
	Path string `json:"path,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Mode: ModeNative,
		Live: LiveConfig{
			Host: DefaultHost,
			Port: DefaultPort,
			Path: DefaultSocketPath,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
			Path:      DefaultMetricsPath,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for vbind.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No vbind.json found in " + filepath.Dir(path))
		}
		return nil, errors.FromError(err, errors.CodeConfigInvalid)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail("Failed to parse vbind.json: " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.FromError(err, errors.CodeConfigInvalid)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.FromError(err, errors.CodeConfigInvalid)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeNative
	}
	if c.Live.Host == "" {
		c.Live.Host = DefaultHost
	}
	if c.Live.Port == 0 {
		c.Live.Port = DefaultPort
	}
	if c.Live.Path == "" {
		c.Live.Path = DefaultSocketPath
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Mode != ModeNative && c.Mode != ModeFallback {
		return errors.New(errors.CodeConfigInvalid).
			WithDetailf("mode must be %q or %q, got %q", ModeNative, ModeFallback, c.Mode)
	}
	if c.Live.Port < 0 || c.Live.Port > 65535 {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("Port must be between 0 and 65535")
	}
	if !strings.HasPrefix(c.Live.Path, "/") {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("live.path must start with /")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Fallback reports whether the deferred array notification mode is selected.
func (c *Config) Fallback() bool {
	return c.Mode == ModeFallback
}

// LiveAddress returns the address string for the live server.
func (c *Config) LiveAddress() string {
	return c.Live.Host + ":" + strconv.Itoa(c.Live.Port)
}

// ResolvePath resolves p relative to the config directory.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir() == "" {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// ParseLevel converts a level name into a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, errors.New(errors.CodeConfigInvalid).
			WithDetailf("unknown log level %q", level)
	}
	return l, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing vbind.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeConfigNotFound).
				WithDetail("No vbind.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory,
// returning defaults when no vbind.json exists.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		if errors.HasCode(err, errors.CodeConfigNotFound) {
			return New(), nil
		}
		return nil, err
	}

	return Load(root)
}
