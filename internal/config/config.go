// Package config loads SetlistDNA settings from a TOML file, a .env file and
// SETLIST_* environment variables, in increasing order of precedence.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// SampleConfig returns a commented configuration file with every default.
func SampleConfig() string {
	return sampleConfig
}

type Paths struct {
	DBPath      string `toml:"db_path"`
	TempDir     string `toml:"temp_dir"`
	DownloadDir string `toml:"download_dir"`
	OutputDir   string `toml:"output_dir"`
}

type Analysis struct {
	SampleRate     int     `toml:"sample_rate"`
	WindowSize     int     `toml:"window_size"`
	HopSize        int     `toml:"hop_size"`
	FluxPercentile float64 `toml:"flux_percentile"`
	OnsetDelta     float64 `toml:"onset_delta"`
	MinSeparation  float64 `toml:"min_separation"`
}

type Schedule struct {
	LeadTime     float64 `toml:"lead_time"`
	ChunkLength  float64 `toml:"chunk_length"`
	DelaySeconds float64 `toml:"delay_seconds"`
	Concurrency  int     `toml:"concurrency"`
}

// Delay returns the post-call delay as a duration.
func (s Schedule) Delay() time.Duration {
	return time.Duration(s.DelaySeconds * float64(time.Second))
}

type Smoothing struct {
	Strategy          string  `toml:"strategy"`
	WindowSize        int     `toml:"window_size"`
	MinTrackDuration  float64 `toml:"min_track_duration"`
	LastTrackDuration float64 `toml:"last_track_duration"`
}

type Recognizer struct {
	Provider       string  `toml:"provider"`
	Command        string  `toml:"command"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MinConfidence  float64 `toml:"min_confidence"`
	Cache          bool    `toml:"cache"`
}

func (r Recognizer) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Server struct {
	Bind        string   `toml:"bind"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Config is the full SetlistDNA configuration.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Analysis   Analysis   `toml:"analysis"`
	Schedule   Schedule   `toml:"schedule"`
	Smoothing  Smoothing  `toml:"smoothing"`
	Recognizer Recognizer `toml:"recognizer"`
	Logging    Logging    `toml:"logging"`
	Server     Server     `toml:"server"`
}

const (
	ProviderCommand = "command"
	ProviderLocal   = "local"

	defaultConfigPath   = "~/.config/setlistdna/config.toml"
	projectConfigFile   = "setlistdna.toml"
	defaultRecognizeCmd = "songrec audio-file-to-recognized-song {file}"
)

func Default() Config {
	return Config{
		Paths: Paths{
			DBPath:      "~/.local/share/setlistdna/setlistdna.sqlite3",
			TempDir:     filepath.Join(os.TempDir(), "setlistdna"),
			DownloadDir: "~/Music/setlistdna",
		},
		Analysis: Analysis{
			SampleRate:     11025,
			WindowSize:     2048,
			HopSize:        512,
			FluxPercentile: 90,
			OnsetDelta:     0.5,
			MinSeparation:  30,
		},
		Schedule: Schedule{
			LeadTime:     5,
			ChunkLength:  60,
			DelaySeconds: 1,
			Concurrency:  1,
		},
		Smoothing: Smoothing{
			Strategy:          "majority",
			WindowSize:        5,
			MinTrackDuration:  120,
			LastTrackDuration: 300,
		},
		Recognizer: Recognizer{
			Provider:       ProviderCommand,
			Command:        defaultRecognizeCmd,
			TimeoutSeconds: 60,
			MinConfidence:  30,
			Cache:          true,
		},
		Logging: Logging{Level: "info", Format: "console"},
		Server:  Server{Bind: "127.0.0.1:8080", CORSOrigins: []string{"*"}},
	}
}

// Load reads the configuration at path, or the first of
// ~/.config/setlistdna/config.toml and ./setlistdna.toml when path is empty.
// A missing file is not an error. It returns the resolved path and whether
// it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads ./.env without overriding variables already set.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigFile)
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// DefaultConfigPath returns where `config init` writes by default.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

func (c *Config) normalize() error {
	var err error
	for name, p := range map[string]*string{
		"paths.db_path":      &c.Paths.DBPath,
		"paths.temp_dir":     &c.Paths.TempDir,
		"paths.download_dir": &c.Paths.DownloadDir,
		"paths.output_dir":   &c.Paths.OutputDir,
	} {
		if *p, err = expandPath(strings.TrimSpace(*p)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	c.Smoothing.Strategy = strings.ToLower(strings.TrimSpace(c.Smoothing.Strategy))
	c.Recognizer.Provider = strings.ToLower(strings.TrimSpace(c.Recognizer.Provider))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

// EnsureDirectories creates the scratch and database directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TempDir, filepath.Dir(c.Paths.DBPath)} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
