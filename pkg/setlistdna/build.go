package setlistdna

import (
	"fmt"

	"github.com/himanishpuri/SetlistDNA/internal/config"
	"github.com/himanishpuri/SetlistDNA/internal/onset"
	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/recognizer"
)

// OptionsFromConfig maps a loaded configuration onto service options.
func OptionsFromConfig(c *config.Config) ([]Option, error) {
	so, err := SmoothingOptions(c.Smoothing)
	if err != nil {
		return nil, err
	}
	oc := onset.DefaultConfig()
	oc.WindowSize = c.Analysis.WindowSize
	oc.HopSize = c.Analysis.HopSize
	oc.FluxPercentile = c.Analysis.FluxPercentile
	oc.OnsetDelta = c.Analysis.OnsetDelta

	return []Option{
		WithDBPath(c.Paths.DBPath),
		WithTempDir(c.Paths.TempDir),
		WithSampleRate(c.Analysis.SampleRate),
		WithOnset(oc),
		WithMinSeparation(c.Analysis.MinSeparation),
		WithLeadTime(c.Schedule.LeadTime),
		WithChunkLength(c.Schedule.ChunkLength),
		WithDelay(c.Schedule.Delay()),
		WithConcurrency(c.Schedule.Concurrency),
		WithSmoothing(so),
	}, nil
}

// SmoothingOptions converts the [smoothing] table.
func SmoothingOptions(c config.Smoothing) (smoothing.Options, error) {
	strategy, err := smoothing.ParseStrategy(c.Strategy)
	if err != nil {
		return smoothing.Options{}, err
	}
	return smoothing.Options{
		Strategy:          strategy,
		WindowSize:        c.WindowSize,
		MinTrackDuration:  c.MinTrackDuration,
		LastTrackDuration: c.LastTrackDuration,
	}, nil
}

// NewRecognizer builds the configured recognizer. lib may be nil unless the
// local provider or the cache is enabled.
func NewRecognizer(c config.Recognizer, lib *Library, log Logger) (Recognizer, error) {
	var rec Recognizer
	switch c.Provider {
	case config.ProviderLocal:
		if lib == nil {
			return nil, fmt.Errorf("local recognizer needs the fingerprint library")
		}
		rec = recognizer.NewLocal(lib, c.MinConfidence, log)
	case config.ProviderCommand, "":
		cmd, err := recognizer.NewCommand(c.Command, c.Timeout(), log)
		if err != nil {
			return nil, err
		}
		rec = cmd
	default:
		return nil, fmt.Errorf("unknown recognizer provider %q", c.Provider)
	}

	if c.Cache && lib != nil {
		rec = recognizer.NewCached(rec, lib.Storage(), log)
	}
	return rec, nil
}

// NewExtractor returns the segment extractor the provider expects: MP3 for
// external recognizers, mono WAV at the library rate for the local one.
func NewExtractor(c *config.Config) SegmentExtractor {
	ec := audio.DefaultExtractConfig()
	if c.Recognizer.Provider == config.ProviderLocal {
		ec.Format = audio.FormatWAV
		ec.Channels = 1
		ec.SampleRate = c.Analysis.SampleRate
	}
	return audio.NewFFmpegExtractor(c.Paths.TempDir, ec)
}
