package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.normalize())
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30.0, cfg.Analysis.MinSeparation)
	assert.Equal(t, 5.0, cfg.Schedule.LeadTime)
	assert.Equal(t, 60.0, cfg.Schedule.ChunkLength)
	assert.Equal(t, "1s", cfg.Schedule.Delay().String())
	assert.Equal(t, 5, cfg.Smoothing.WindowSize)
	assert.Equal(t, 120.0, cfg.Smoothing.MinTrackDuration)
	assert.Equal(t, 300.0, cfg.Smoothing.LastTrackDuration)
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, toml.Unmarshal([]byte(SampleConfig()), &cfg))
	def := Default()
	assert.Equal(t, def.Analysis, cfg.Analysis)
	assert.Equal(t, def.Schedule, cfg.Schedule)
	assert.Equal(t, def.Smoothing, cfg.Smoothing)
	assert.Equal(t, def.Recognizer, cfg.Recognizer)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[schedule]
chunk_length = 45.0
concurrency = 3

[smoothing]
strategy = "Surround"

[paths]
temp_dir = "scratch"
`)
	cfg, resolved, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, 45.0, cfg.Schedule.ChunkLength)
	assert.Equal(t, 3, cfg.Schedule.Concurrency)
	assert.Equal(t, "surround", cfg.Smoothing.Strategy)
	assert.True(t, filepath.IsAbs(cfg.Paths.TempDir))
	// untouched sections keep defaults
	assert.Equal(t, 5.0, cfg.Schedule.LeadTime)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 60.0, cfg.Schedule.ChunkLength)
}

func TestLoadRejectsUnknownKeysAndBadValues(t *testing.T) {
	_, _, _, err := Load(writeConfig(t, "[schedule]\nchunk_lenght = 10\n"))
	assert.Error(t, err)

	_, _, _, err = Load(writeConfig(t, "[schedule]\nchunk_length = -1.0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_length")

	_, _, _, err = Load(writeConfig(t, "[recognizer]\ncommand = \"songrec\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{file}")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[schedule]\nchunk_length = 45.0\n")
	t.Setenv("SETLIST_CHUNK_LENGTH", "90")
	t.Setenv("SETLIST_STRATEGY", "none")
	t.Setenv("SETLIST_CACHE", "false")

	cfg, _, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90.0, cfg.Schedule.ChunkLength)
	assert.Equal(t, "none", cfg.Smoothing.Strategy)
	assert.False(t, cfg.Recognizer.Cache)
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	cfg := Default()
	env := map[string]string{"SETLIST_CONCURRENCY": "many"}
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "SETLIST_CONCURRENCY"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Schedule.Concurrency = 0 }},
		{"negative lead", func(c *Config) { c.Schedule.LeadTime = -1 }},
		{"bad strategy", func(c *Config) { c.Smoothing.Strategy = "vote" }},
		{"bad provider", func(c *Config) { c.Recognizer.Provider = "shazam" }},
		{"window not power of two", func(c *Config) { c.Analysis.WindowSize = 1000 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/music/sets")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "music", "sets"), got)

	got, err = expandPath("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
