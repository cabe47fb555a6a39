package setlistdna

import (
	"os"
	"path/filepath"
	"time"

	"github.com/himanishpuri/SetlistDNA/internal/boundary"
	"github.com/himanishpuri/SetlistDNA/internal/onset"
	"github.com/himanishpuri/SetlistDNA/internal/schedule"
	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
	"github.com/himanishpuri/SetlistDNA/internal/storage"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
)

type Config struct {
	DBPath        string
	TempDir       string
	SampleRate    int
	Onset         onset.Config
	MinSeparation float64
	LeadTime      float64
	ChunkLength   float64
	Delay         time.Duration
	Concurrency   int
	Smoothing     smoothing.Options
	Detector      Detector
	Extractor     SegmentExtractor
	Recognizer    Recognizer
	Logger        Logger
	Storage       Storage
	OnEvent       func(schedule.Event)
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithOnset(cfg onset.Config) Option {
	return func(c *Config) {
		c.Onset = cfg
	}
}

func WithMinSeparation(seconds float64) Option {
	return func(c *Config) {
		c.MinSeparation = seconds
	}
}

func WithLeadTime(seconds float64) Option {
	return func(c *Config) {
		c.LeadTime = seconds
	}
}

func WithChunkLength(seconds float64) Option {
	return func(c *Config) {
		c.ChunkLength = seconds
	}
}

// WithDelay sets the pause after every recognizer call.
func WithDelay(d time.Duration) Option {
	return func(c *Config) {
		c.Delay = d
	}
}

func WithConcurrency(n int) Option {
	return func(c *Config) {
		c.Concurrency = n
	}
}

func WithSmoothing(opts smoothing.Options) Option {
	return func(c *Config) {
		c.Smoothing = opts
	}
}

func WithDetector(d Detector) Option {
	return func(c *Config) {
		c.Detector = d
	}
}

func WithExtractor(e SegmentExtractor) Option {
	return func(c *Config) {
		c.Extractor = e
	}
}

func WithRecognizer(r Recognizer) Option {
	return func(c *Config) {
		c.Recognizer = r
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithProgress registers a callback invoked once per scheduled boundary.
func WithProgress(fn func(schedule.Event)) Option {
	return func(c *Config) {
		c.OnEvent = fn
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:        storage.DefaultDBFile,
		TempDir:       filepath.Join(os.TempDir(), "setlistdna"),
		SampleRate:    onset.DefaultSampleRate,
		Onset:         onset.DefaultConfig(),
		MinSeparation: boundary.DefaultMinSeparation,
		LeadTime:      schedule.DefaultLeadTime,
		ChunkLength:   schedule.DefaultChunkLength,
		Delay:         schedule.DefaultDelay,
		Concurrency:   schedule.DefaultConcurrency,
		Smoothing:     smoothing.DefaultOptions(),
	}
}

func (c *Config) schedule() schedule.Config {
	return schedule.Config{
		LeadTime:    c.LeadTime,
		ChunkLength: c.ChunkLength,
		Delay:       c.Delay,
		Concurrency: c.Concurrency,
		Logger:      c.Logger,
		OnEvent:     c.OnEvent,
	}
}

// validate rejects parameters no stage can run with.
func (c *Config) validate() error {
	if c.MinSeparation < 0 {
		return models.Invalid(models.ReasonInvalidParameter, "min separation must not be negative, got %g", c.MinSeparation)
	}
	if c.SampleRate <= 0 {
		return models.Invalid(models.ReasonInvalidParameter, "sample rate must be positive, got %d", c.SampleRate)
	}
	if err := c.schedule().Validate(); err != nil {
		return err
	}
	return c.Smoothing.Validate()
}
