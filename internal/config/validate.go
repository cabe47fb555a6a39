package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateSmoothing(); err != nil {
		return err
	}
	if err := c.validateRecognizer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAnalysis() error {
	a := c.Analysis
	if a.SampleRate <= 0 {
		return fmt.Errorf("analysis.sample_rate must be positive")
	}
	if a.WindowSize < 2 || a.WindowSize&(a.WindowSize-1) != 0 {
		return fmt.Errorf("analysis.window_size must be a power of two")
	}
	if a.HopSize <= 0 || a.HopSize > a.WindowSize {
		return fmt.Errorf("analysis.hop_size must be in (0, window_size]")
	}
	if a.FluxPercentile < 0 || a.FluxPercentile > 100 {
		return fmt.Errorf("analysis.flux_percentile must be within [0, 100]")
	}
	if a.MinSeparation < 0 {
		return fmt.Errorf("analysis.min_separation must not be negative")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	s := c.Schedule
	if s.LeadTime < 0 {
		return fmt.Errorf("schedule.lead_time must not be negative")
	}
	if s.ChunkLength <= 0 {
		return fmt.Errorf("schedule.chunk_length must be positive")
	}
	if s.DelaySeconds < 0 {
		return fmt.Errorf("schedule.delay_seconds must not be negative")
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("schedule.concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateSmoothing() error {
	s := c.Smoothing
	switch s.Strategy {
	case "majority", "surround", "none":
	default:
		return fmt.Errorf("smoothing.strategy must be majority, surround or none, got %q", s.Strategy)
	}
	if s.WindowSize < 1 {
		return fmt.Errorf("smoothing.window_size must be at least 1")
	}
	if s.MinTrackDuration < 0 || s.LastTrackDuration < 0 {
		return fmt.Errorf("smoothing durations must not be negative")
	}
	return nil
}

func (c *Config) validateRecognizer() error {
	r := c.Recognizer
	switch r.Provider {
	case ProviderCommand:
		if !strings.Contains(r.Command, "{file}") {
			return errors.New("recognizer.command must contain the {file} placeholder")
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("recognizer.provider must be %q or %q, got %q", ProviderCommand, ProviderLocal, r.Provider)
	}
	if r.TimeoutSeconds <= 0 {
		return fmt.Errorf("recognizer.timeout_seconds must be positive")
	}
	if r.MinConfidence < 0 || r.MinConfidence > 100 {
		return fmt.Errorf("recognizer.min_confidence must be within [0, 100]")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
}
