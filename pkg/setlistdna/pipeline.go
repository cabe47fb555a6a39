package setlistdna

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/himanishpuri/SetlistDNA/internal/boundary"
	"github.com/himanishpuri/SetlistDNA/internal/schedule"
	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
	"github.com/himanishpuri/SetlistDNA/internal/tracklist"
	"github.com/himanishpuri/SetlistDNA/pkg/logger"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/recognizer"
)

// Pipeline turns a DJ set recording into a tracklist: detect and reconcile
// boundaries, identify the window after each one, smooth, assemble.
type Pipeline struct {
	cfg *Config
	log Logger
}

func NewPipeline(opts ...Option) (*Pipeline, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Detector == nil {
		cfg.Detector = &AudioDetector{
			TempDir:    cfg.TempDir,
			SampleRate: cfg.SampleRate,
			Onset:      cfg.Onset,
			Log:        cfg.Logger,
		}
	}
	if cfg.Extractor == nil {
		cfg.Extractor = audio.NewFFmpegExtractor(cfg.TempDir, audio.DefaultExtractConfig())
	}
	if cfg.Recognizer == nil {
		rec, err := recognizer.NewCommand(recognizer.DefaultCommand, 0, cfg.Logger)
		if err != nil {
			return nil, err
		}
		cfg.Recognizer = rec
	}

	return &Pipeline{cfg: cfg, log: cfg.Logger}, nil
}

// Process runs the whole pipeline on a local audio file. Input problems
// yield a degenerate report together with a *models.ValidationError. When
// ctx ends mid-run the partial report is returned with ctx.Err().
func (p *Pipeline) Process(ctx context.Context, source string) (*tracklist.Report, error) {
	info, err := os.Stat(source)
	if err != nil || info.IsDir() {
		reason := models.ReasonMissingSource
		return tracklist.Degenerate(source, reason), models.Invalid(reason, "%s is not a readable file", source)
	}

	p.log.Infof("Analyzing %s", source)
	candidates, duration, err := p.cfg.Detector.Detect(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("boundary detection failed: %w", err)
	}
	return p.ProcessCandidates(ctx, source, candidates, duration)
}

// ProcessCandidates runs the pipeline from raw candidate lists onward.
func (p *Pipeline) ProcessCandidates(ctx context.Context, source string, candidates [][]float64, duration float64) (*tracklist.Report, error) {
	if duration <= 0 {
		reason := models.ReasonZeroDuration
		return tracklist.Degenerate(source, reason), models.Invalid(reason, "recording length is %gs", duration)
	}

	boundaries := boundary.Reconcile(candidates, p.cfg.MinSeparation)
	if len(boundaries) == 0 {
		reason := models.ReasonNoBoundaries
		return tracklist.Degenerate(source, reason), models.Invalid(reason, "no boundary candidates in %s", source)
	}
	p.log.Infof("Reconciled %d boundaries (min separation %.0fs)", len(boundaries), p.cfg.MinSeparation)

	sourceID := audio.SourceID(source)
	outcome, err := schedule.Schedule(ctx, boundaries, duration, p.cfg.schedule(), p.identifier(source, sourceID))
	if err != nil && !schedule.IsInterrupted(err) {
		return nil, err
	}
	p.log.Infof("Identified %d of %d boundaries (%d queried, %d skipped, %d failed)",
		len(outcome.Results), outcome.Attempted, outcome.Queried, outcome.Skipped, outcome.Failed)

	smoothed, corrections := smoothing.Smooth(outcome.Results, p.cfg.Smoothing)
	for _, c := range corrections {
		p.log.Debugf("smoothing at %s: %s -> %s", tracklist.FormatTimestamp(c.Timestamp), c.Original, c.CorrectedTo)
	}

	report := tracklist.Assemble(tracklist.Run{
		Source:      source,
		Provider:    p.cfg.Recognizer.Name(),
		Boundaries:  boundaries,
		ChunkLength: p.cfg.ChunkLength,
		Raw:         outcome.Results,
		Smoothed:    smoothed,
		Corrections: corrections,
		Strategy:    p.cfg.Smoothing.Strategy,
		Partial:     outcome.Partial,
	})
	return report, err
}

// identifier binds the extractor and recognizer to one source. Cached
// outcomes are answered before any audio is cut.
func (p *Pipeline) identifier(source, sourceID string) schedule.Identifier {
	return func(ctx context.Context, start, length float64) (schedule.Lookup, error) {
		if c, ok := p.cfg.Recognizer.(cacheLookup); ok {
			if id, hit := c.Lookup(sourceID, start, length); hit {
				return schedule.Lookup{Identity: id, Cached: true}, nil
			}
		}

		seg, err := p.cfg.Extractor.Extract(ctx, source, start, length)
		if err != nil {
			if !errors.Is(err, models.ErrExtraction) {
				err = models.Wrap(models.ErrExtraction, "", err)
			}
			return schedule.Lookup{}, err
		}
		defer func() {
			if err := seg.Close(); err != nil {
				p.log.Warnf("removing segment %s: %v", seg.Path, err)
			}
		}()
		if seg.SourceID == "" {
			seg.SourceID = sourceID
		}

		id, err := p.cfg.Recognizer.Recognize(ctx, seg)
		return schedule.Lookup{Identity: id}, err
	}
}

// Replay re-runs smoothing and assembly over a persisted record.
func Replay(rec *tracklist.Record, opts smoothing.Options, provider string) (*tracklist.Report, error) {
	if rec == nil {
		return nil, models.Invalid(models.ReasonInvalidParameter, "no record")
	}
	return rec.Replay(opts, provider)
}
