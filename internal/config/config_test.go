package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "validate", cfg.EntryPoint)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: badger\ndata_dir: /tmp/g\nlog_level: debug\n"), 0644))

	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, "/tmp/g", cfg.DataDir)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "validate", cfg.EntryPoint, "unset keys keep defaults")
}

func TestLoadFile_Strict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backnd: badger\n"), 0644))

	cfg := Default()
	err := cfg.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backnd")
}

func TestLoadFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golem.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: badger\n"), 0644))
	t.Setenv(EnvBackend, "memory")
	t.Setenv(EnvEntryPoint, "check")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "check", cfg.EntryPoint)
}

func TestLoad_OverridesWinOverEnv(t *testing.T) {
	t.Setenv(EnvBackend, "badger")

	cfg, err := Load("", func(c *Config) { c.Backend = BackendMemory })
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)

	_, err = Load("", func(c *Config) { c.Backend = "floppy" })
	require.Error(t, err)
	assert.Contains(t, err.Error(), `backend "floppy"`)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{
		EnvDataDir:  "/data",
		EnvContent:  "lessons/",
		EnvLogLevel: "",
	}))
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, "lessons/", cfg.ContentPath)
	assert.Equal(t, "warn", cfg.LogLevel, "empty values are ignored")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"backend", func(c *Config) { c.Backend = "postgres" }, `backend "postgres"`},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, `log_level "loud"`},
		{"data dir", func(c *Config) { c.DataDir = "" }, "data_dir is required"},
		{"entry point", func(c *Config) { c.EntryPoint = "" }, "entry_point"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	mem := Default()
	mem.Backend = BackendMemory
	mem.DataDir = ""
	assert.NoError(t, mem.Validate(), "memory needs no data dir")
}

func TestLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelWarn,
	} {
		assert.Equal(t, want, Config{LogLevel: in}.Level(), in)
	}
}

func TestPaths(t *testing.T) {
	cfg := Config{DataDir: "/d", Backend: BackendSQLite}
	assert.Equal(t, filepath.Join("/d", "progress.db"), cfg.StorePath())
	assert.Equal(t, cfg.StorePath(), cfg.JournalPath())

	cfg.Backend = BackendBadger
	assert.Equal(t, filepath.Join("/d", "progress.badger"), cfg.StorePath())
	assert.Equal(t, filepath.Join("/d", "journal.db"), cfg.JournalPath())

	cfg.Backend = BackendMemory
	assert.Equal(t, "", cfg.StorePath())
	assert.Equal(t, ":memory:", cfg.JournalPath())
}
