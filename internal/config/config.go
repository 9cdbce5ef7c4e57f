// Package config loads golem's runtime settings.
//
// Precedence, lowest first: Default, an optional YAML file, GOLEM_*
// environment variables, then command-line flags (applied by the caller).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/golem/internal/engine"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Backends lists the accepted Backend values.
var Backends = []string{BackendSQLite, BackendBadger, BackendMemory}

// LogLevels lists the accepted LogLevel values.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Environment variables read by ApplyEnv.
const (
	EnvDataDir    = "GOLEM_DATA_DIR"
	EnvBackend    = "GOLEM_BACKEND"
	EnvContent    = "GOLEM_CONTENT"
	EnvEntryPoint = "GOLEM_ENTRY_POINT"
	EnvLogLevel   = "GOLEM_LOG_LEVEL"
)

// Config holds every setting the CLI needs to assemble a session.
type Config struct {
	// DataDir holds the progress database.
	DataDir string `yaml:"data_dir"`

	// Backend selects the progress store.
	Backend string `yaml:"backend"`

	// ContentPath is a curriculum file or directory. Empty means builtin.
	ContentPath string `yaml:"content"`

	// EntryPoint is the validator function name.
	EntryPoint string `yaml:"entry_point"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DataDir:    defaultDataDir(),
		Backend:    BackendSQLite,
		EntryPoint: engine.DefaultEntryPoint,
		LogLevel:   "warn",
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "golem")
	}
	return ".golem"
}

// Load returns Default overlaid with the file at path (skipped when path
// is empty), the process environment and overrides, then validated.
func Load(path string, overrides ...func(*Config)) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	for _, override := range overrides {
		override(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.decode(data)
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv overlays the GOLEM_* variables found by lookup. Empty values
// are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvDataDir, &c.DataDir)
	set(EnvBackend, &c.Backend)
	set(EnvContent, &c.ContentPath)
	set(EnvEntryPoint, &c.EntryPoint)
	set(EnvLogLevel, &c.LogLevel)
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if !slices.Contains(Backends, c.Backend) {
		return fmt.Errorf("backend %q must be one of %s", c.Backend, strings.Join(Backends, ", "))
	}
	if !slices.Contains(LogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("log_level %q must be one of %s", c.LogLevel, strings.Join(LogLevels, ", "))
	}
	if c.Backend != BackendMemory && c.DataDir == "" {
		return fmt.Errorf("data_dir is required for the %s backend", c.Backend)
	}
	if c.EntryPoint == "" {
		return fmt.Errorf("entry_point must not be empty")
	}
	return nil
}

// Level maps LogLevel to a slog level. Unknown values mean warn.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}

// StorePath returns where the configured backend keeps its data: a SQLite
// file or a Badger directory inside DataDir. Empty for the memory backend.
func (c Config) StorePath() string {
	switch c.Backend {
	case BackendSQLite:
		return filepath.Join(c.DataDir, "progress.db")
	case BackendBadger:
		return filepath.Join(c.DataDir, "progress.badger")
	}
	return ""
}

// JournalPath returns the SQLite database that keeps attempt history. The
// sqlite backend shares its progress file; the memory backend journals in
// memory.
func (c Config) JournalPath() string {
	switch c.Backend {
	case BackendSQLite:
		return c.StorePath()
	case BackendBadger:
		return filepath.Join(c.DataDir, "journal.db")
	}
	return ":memory:"
}
