package config

import (
	"fmt"
	"strconv"
	"strings"
)

// applyEnv overrides file values with SETLIST_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	float := func(key string, dst *float64) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
		return nil
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("SETLIST_DB_PATH", &c.Paths.DBPath)
	str("SETLIST_TEMP_DIR", &c.Paths.TempDir)
	str("SETLIST_DOWNLOAD_DIR", &c.Paths.DownloadDir)
	str("SETLIST_OUTPUT_DIR", &c.Paths.OutputDir)
	str("SETLIST_STRATEGY", &c.Smoothing.Strategy)
	str("SETLIST_PROVIDER", &c.Recognizer.Provider)
	str("SETLIST_RECOGNIZER_COMMAND", &c.Recognizer.Command)
	str("SETLIST_LOG_LEVEL", &c.Logging.Level)
	str("SETLIST_LOG_FORMAT", &c.Logging.Format)
	str("SETLIST_SERVER_BIND", &c.Server.Bind)

	for key, dst := range map[string]*float64{
		"SETLIST_MIN_SEPARATION":     &c.Analysis.MinSeparation,
		"SETLIST_LEAD_TIME":          &c.Schedule.LeadTime,
		"SETLIST_CHUNK_LENGTH":       &c.Schedule.ChunkLength,
		"SETLIST_DELAY_SECONDS":      &c.Schedule.DelaySeconds,
		"SETLIST_MIN_TRACK_DURATION": &c.Smoothing.MinTrackDuration,
		"SETLIST_MIN_CONFIDENCE":     &c.Recognizer.MinConfidence,
	} {
		if err := float(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*int{
		"SETLIST_CONCURRENCY":        &c.Schedule.Concurrency,
		"SETLIST_WINDOW_SIZE":        &c.Smoothing.WindowSize,
		"SETLIST_RECOGNIZER_TIMEOUT": &c.Recognizer.TimeoutSeconds,
		"SETLIST_SAMPLE_RATE":        &c.Analysis.SampleRate,
	} {
		if err := integer(key, dst); err != nil {
			return err
		}
	}
	return boolean("SETLIST_CACHE", &c.Recognizer.Cache)
}
