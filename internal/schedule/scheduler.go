// Package schedule walks reconciled boundaries and queries the recognizer for
// a fixed-length window after each one, respecting a provider rate limit.
package schedule

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/himanishpuri/SetlistDNA/pkg/models"
)

const (
	DefaultLeadTime    = 5.0
	DefaultChunkLength = 60.0
	DefaultDelay       = time.Second
	DefaultConcurrency = 1
)

// Lookup is what an Identifier returns for one window. A nil Identity means
// no match. Cached lookups did not reach the provider and skip the delay.
type Lookup struct {
	Identity *models.Identity
	Cached   bool
}

// Identifier recognizes the window [start, start+length) of the recording.
type Identifier func(ctx context.Context, start, length float64) (Lookup, error)

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}

// Event describes one finished boundary, reported through Config.OnEvent.
type Event struct {
	Boundary float64
	Start    float64
	Skipped  bool
	Identity *models.Identity
	Err      error
}

type Config struct {
	LeadTime    float64
	ChunkLength float64
	// Delay is the minimum pause after every provider call.
	Delay time.Duration
	// Concurrency caps in-flight calls. The aggregate call rate does not
	// grow with it: starts share one limiter of one call per Delay.
	Concurrency int
	Logger      Logger
	// OnEvent is called once per boundary. It may be called concurrently.
	OnEvent func(Event)
}

func DefaultConfig() Config {
	return Config{
		LeadTime:    DefaultLeadTime,
		ChunkLength: DefaultChunkLength,
		Delay:       DefaultDelay,
		Concurrency: DefaultConcurrency,
	}
}

func (c Config) Validate() error {
	switch {
	case c.LeadTime < 0:
		return models.Invalid(models.ReasonInvalidParameter, "lead time must not be negative, got %g", c.LeadTime)
	case c.ChunkLength <= 0:
		return models.Invalid(models.ReasonInvalidParameter, "chunk length must be positive, got %g", c.ChunkLength)
	case c.Delay < 0:
		return models.Invalid(models.ReasonInvalidParameter, "delay must not be negative, got %s", c.Delay)
	case c.Concurrency < 0:
		return models.Invalid(models.ReasonInvalidParameter, "concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}

// Outcome is the result of a scheduling pass.
type Outcome struct {
	// Results holds one entry per matched window, ordered by timestamp.
	Results []models.IdentificationResult
	// Attempted counts every boundary handed in, skipped ones included.
	Attempted int
	Queried   int
	Skipped   int
	Failed    int
	// Partial is set when the context ended before every boundary ran.
	Partial bool
}

// Schedule identifies the window after every boundary that leaves room for a
// full chunk before duration. Per-boundary failures count as no match. When
// ctx ends early the results gathered so far are returned with ctx.Err().
func Schedule(ctx context.Context, boundaries []float64, duration float64, cfg Config, identify Identifier) (Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return Outcome{}, err
	}
	log := cfg.Logger
	if log == nil {
		log = nopLogger{}
	}
	workers := max(cfg.Concurrency, 1)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}

	var (
		mu   sync.Mutex
		done int
		out  = Outcome{Attempted: len(boundaries), Results: []models.IdentificationResult{}}
	)
	emit := func(ev Event) {
		if cfg.OnEvent != nil {
			cfg.OnEvent(ev)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, b := range boundaries {
		start := b + cfg.LeadTime
		if start+cfg.ChunkLength > duration {
			log.Debugf("boundary %.1fs: %v (window ends at %.1fs, recording %.1fs)",
				b, models.ErrInsufficientDuration, start+cfg.ChunkLength, duration)
			mu.Lock()
			out.Skipped++
			done++
			mu.Unlock()
			emit(Event{Boundary: b, Start: start, Skipped: true})
			continue
		}
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return nil
			}
			if gctx.Err() != nil {
				return nil
			}

			lookup, err := identify(gctx, start, cfg.ChunkLength)

			mu.Lock()
			out.Queried++
			var id *models.Identity
			switch {
			case err != nil && gctx.Err() != nil:
				mu.Unlock()
				return nil
			case err != nil:
				out.Failed++
				log.Warnf("boundary %.1fs: identification failed, treating as no match: %v", b, err)
			case lookup.Identity != nil:
				norm, ok := lookup.Identity.Normalized()
				if !ok {
					log.Warnf("boundary %.1fs: %v, substituted %q", b, models.ErrMalformedResult, norm.String())
				}
				id = &norm
				out.Results = append(out.Results, models.IdentificationResult{
					Timestamp:  start,
					Artist:     norm.Artist,
					Title:      norm.Title,
					Confidence: models.ConfidenceHigh,
				})
			default:
				log.Debugf("boundary %.1fs: no match", b)
			}
			done++
			mu.Unlock()

			emit(Event{Boundary: b, Start: start, Identity: id, Err: err})

			if err == nil && lookup.Cached {
				return nil
			}
			_ = sleepWithContext(gctx, cfg.Delay)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(out.Results, func(a, b models.IdentificationResult) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})

	if err := ctx.Err(); err != nil && done < out.Attempted {
		out.Partial = true
		log.Warnf("identification interrupted after %d of %d boundaries: %v", done, out.Attempted, err)
		return out, err
	}
	return out, nil
}

// sleepWithContext blocks for d, returning early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsInterrupted reports whether err came from the caller's context ending.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
