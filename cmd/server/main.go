//go:build !js && !wasm

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/himanishpuri/SetlistDNA/internal/config"
	"github.com/himanishpuri/SetlistDNA/pkg/logger"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna"
)

var (
	configPath string
	bind       string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&bind, "bind", "", "Listen address (overrides server.bind)")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if bind != "" {
		cfg.Server.Bind = bind
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	log := logger.GetLogger()
	if lvl, ok := logger.ParseLevel(cfg.Logging.Level); ok {
		log.SetLevel(lvl)
	}
	log.SetFormat(cfg.Logging.Format)
	if lvl, _ := logger.ParseLevel(cfg.Logging.Level); lvl > logger.DEBUG {
		gin.SetMode(gin.ReleaseMode)
	}

	opts, err := setlistdna.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts = append(opts, setlistdna.WithLogger(log))

	library, err := setlistdna.OpenLibrary(opts...)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer library.Close()

	rec, err := setlistdna.NewRecognizer(cfg.Recognizer, library, log)
	if err != nil {
		return err
	}
	pipeline, err := setlistdna.NewPipeline(append(opts,
		setlistdna.WithRecognizer(rec),
		setlistdna.WithExtractor(setlistdna.NewExtractor(cfg)),
	)...)
	if err != nil {
		return err
	}

	smoothingOpts, err := setlistdna.SmoothingOptions(cfg.Smoothing)
	if err != nil {
		return err
	}

	server := NewServer(library, pipeline, &ServerConfig{
		Bind:           cfg.Server.Bind,
		DBPath:         cfg.Paths.DBPath,
		TempDir:        cfg.Paths.TempDir,
		DownloadDir:    cfg.Paths.DownloadDir,
		Provider:       rec.Name(),
		Smoothing:      smoothingOpts,
		AllowedOrigins: cfg.Server.CORSOrigins,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx)
}
