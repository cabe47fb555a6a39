// Package onset proposes candidate track boundaries from decoded audio.
// Two independent signals are produced: spectral-flux peaks and backtracked
// onsets. Neither is filtered for separation; that is the reconciler's job.
package onset

import (
	"errors"
	"fmt"
	"io"
)

const (
	DefaultSampleRate = 11025
	DefaultWindowSize = 2048
	DefaultHopSize    = 512

	// DefaultFluxPercentile sets the prominence a flux peak must reach,
	// as a percentile of all flux values.
	DefaultFluxPercentile = 90.0
	DefaultOnsetRadius    = 3
	DefaultOnsetDelta     = 0.5
	DefaultOnsetWait      = 3

	readBlock = 8192
)

// SampleReader yields mono samples in [-1, 1]. ReadSamples returns io.EOF
// once the stream is exhausted.
type SampleReader interface {
	ReadSamples(dst []float64) (int, error)
	SampleRate() int
}

// SliceReader serves samples already held in memory.
type SliceReader struct {
	samples []float64
	rate    int
	pos     int
}

func NewSliceReader(samples []float64, rate int) *SliceReader {
	return &SliceReader{samples: samples, rate: rate}
}

func (r *SliceReader) SampleRate() int { return r.rate }

func (r *SliceReader) ReadSamples(dst []float64) (int, error) {
	if r.pos >= len(r.samples) {
		return 0, io.EOF
	}
	n := copy(dst, r.samples[r.pos:])
	r.pos += n
	return n, nil
}

type Config struct {
	WindowSize     int
	HopSize        int
	FluxPercentile float64
	OnsetRadius    int
	OnsetDelta     float64
	OnsetWait      int
}

func DefaultConfig() Config {
	return Config{
		WindowSize:     DefaultWindowSize,
		HopSize:        DefaultHopSize,
		FluxPercentile: DefaultFluxPercentile,
		OnsetRadius:    DefaultOnsetRadius,
		OnsetDelta:     DefaultOnsetDelta,
		OnsetWait:      DefaultOnsetWait,
	}
}

func (c Config) Validate() error {
	if c.WindowSize < 2 || c.WindowSize&(c.WindowSize-1) != 0 {
		return fmt.Errorf("window size must be a power of two >= 2, got %d", c.WindowSize)
	}
	if c.HopSize <= 0 || c.HopSize > c.WindowSize {
		return fmt.Errorf("hop size must be in (0, %d], got %d", c.WindowSize, c.HopSize)
	}
	if c.FluxPercentile < 0 || c.FluxPercentile > 100 {
		return fmt.Errorf("flux percentile must be within [0, 100], got %g", c.FluxPercentile)
	}
	if c.OnsetRadius < 0 || c.OnsetWait < 0 {
		return errors.New("onset radius and wait must not be negative")
	}
	return nil
}

// Analysis is the outcome of one pass over a recording.
type Analysis struct {
	// Candidates holds one list per detector: flux peaks, then onsets.
	Candidates [][]float64
	// Duration is derived from the decoded sample count.
	Duration   float64
	SampleRate int
	Frames     []Frame
}

// Analyze streams r through the STFT and runs both detectors.
func Analyze(r SampleReader, cfg Config) (*Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sr := r.SampleRate()
	if sr <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sr)
	}

	st := newSTFT(cfg.WindowSize, cfg.HopSize)
	buf := make([]float64, readBlock)
	var total int
	for {
		n, err := r.ReadSamples(buf)
		if n > 0 {
			st.push(buf[:n])
			total += n
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading samples: %w", err)
		}
	}

	a := &Analysis{
		Duration:   float64(total) / float64(sr),
		SampleRate: sr,
		Frames:     st.frames,
	}
	a.Candidates = [][]float64{
		a.times(fluxPeaks(st.frames, cfg.FluxPercentile), cfg.HopSize),
		a.times(onsets(st.frames, cfg), cfg.HopSize),
	}
	return a, nil
}

func fluxPeaks(frames []Frame, percentile float64) []int {
	if len(frames) < 2 {
		return nil
	}
	// flux of frame t is the change from t to t+1
	flux := make([]float64, len(frames)-1)
	for i := range flux {
		flux[i] = frames[i+1].Flux
	}
	return ProminentPeaks(flux, Percentile(flux, percentile))
}

func onsets(frames []Frame, cfg Config) []int {
	env := make([]float64, len(frames))
	energy := make([]float64, len(frames))
	for i, f := range frames {
		env[i] = f.Strength
		energy[i] = f.Energy
	}
	return Backtrack(PickOnsets(env, cfg.OnsetRadius, cfg.OnsetDelta, cfg.OnsetWait), energy)
}

func (a *Analysis) times(frames []int, hop int) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = float64(f*hop) / float64(a.SampleRate)
	}
	return out
}
