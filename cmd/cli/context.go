package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/SetlistDNA/internal/config"
	"github.com/himanishpuri/SetlistDNA/pkg/logger"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna"
)

// overrideFlags holds command-line values that take precedence over the
// configuration file and environment.
type overrideFlags struct {
	configPath    string
	dbPath        string
	tempDir       string
	logLevel      string
	strategy      string
	window        int
	minTrack      float64
	leadTime      float64
	minSeparation float64
	delay         float64
	concurrency   int
	provider      string
	command       string
	outputDir     string
	noCache       bool
	jsonOut       bool
}

type commandContext struct {
	flags *overrideFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
	log        *logger.Logger
}

func newCommandContext(flags *overrideFlags) *commandContext {
	return &commandContext{flags: flags, log: logger.GetLogger()}
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		c.applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if lvl, ok := logger.ParseLevel(cfg.Logging.Level); ok {
			c.log.SetLevel(lvl)
		}
		c.log.SetFormat(cfg.Logging.Format)
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	f := c.flags
	if changed("db") {
		cfg.Paths.DBPath = f.dbPath
	}
	if changed("temp") {
		cfg.Paths.TempDir = f.tempDir
	}
	if changed("output-dir") {
		cfg.Paths.OutputDir = f.outputDir
	}
	if changed("log-level") {
		cfg.Logging.Level = strings.ToLower(f.logLevel)
	}
	if changed("strategy") {
		cfg.Smoothing.Strategy = strings.ToLower(f.strategy)
	}
	if changed("window") {
		cfg.Smoothing.WindowSize = f.window
	}
	if changed("min-track") {
		cfg.Smoothing.MinTrackDuration = f.minTrack
	}
	if changed("lead-time") {
		cfg.Schedule.LeadTime = f.leadTime
	}
	if changed("min-separation") {
		cfg.Analysis.MinSeparation = f.minSeparation
	}
	if changed("delay") {
		cfg.Schedule.DelaySeconds = f.delay
	}
	if changed("concurrency") {
		cfg.Schedule.Concurrency = f.concurrency
	}
	if changed("provider") {
		cfg.Recognizer.Provider = strings.ToLower(f.provider)
	}
	if changed("recognizer-cmd") {
		cfg.Recognizer.Command = f.command
	}
	if changed("no-cache") && f.noCache {
		cfg.Recognizer.Cache = false
	}
}

func (c *commandContext) openLibrary() (*setlistdna.Library, error) {
	opts, err := setlistdna.OptionsFromConfig(c.config)
	if err != nil {
		return nil, err
	}
	lib, err := setlistdna.OpenLibrary(append(opts, setlistdna.WithLogger(c.log))...)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	return lib, nil
}

// newPipeline builds the analysis pipeline. The returned library is nil
// unless the recognizer needs it; the caller closes it.
func (c *commandContext) newPipeline(extra ...setlistdna.Option) (*setlistdna.Pipeline, *setlistdna.Library, error) {
	cfg := c.config
	var lib *setlistdna.Library
	if cfg.Recognizer.Provider == config.ProviderLocal || cfg.Recognizer.Cache {
		var err error
		if lib, err = c.openLibrary(); err != nil {
			return nil, nil, err
		}
	}

	rec, err := setlistdna.NewRecognizer(cfg.Recognizer, lib, c.log)
	if err != nil {
		closeLibrary(lib)
		return nil, nil, err
	}
	opts, err := setlistdna.OptionsFromConfig(cfg)
	if err != nil {
		closeLibrary(lib)
		return nil, nil, err
	}
	opts = append(opts,
		setlistdna.WithLogger(c.log),
		setlistdna.WithRecognizer(rec),
		setlistdna.WithExtractor(setlistdna.NewExtractor(cfg)),
	)

	p, err := setlistdna.NewPipeline(append(opts, extra...)...)
	if err != nil {
		closeLibrary(lib)
		return nil, nil, err
	}
	return p, lib, nil
}

func closeLibrary(lib *setlistdna.Library) {
	if lib != nil {
		lib.Close()
	}
}
