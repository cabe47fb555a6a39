package setlistdna

import (
	"context"
	"fmt"
	"os"

	"github.com/himanishpuri/SetlistDNA/internal/onset"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
)

// AudioDetector transcodes the source to mono WAV, streams it through the
// onset detectors, and prefers the container duration reported by ffprobe.
type AudioDetector struct {
	TempDir    string
	SampleRate int
	Onset      onset.Config
	Log        Logger
}

func (d *AudioDetector) Detect(ctx context.Context, source string) ([][]float64, float64, error) {
	a, err := d.Analyze(ctx, source)
	if err != nil {
		return nil, 0, err
	}

	duration := a.Duration
	meta, err := audio.Probe(ctx, source)
	switch {
	case err != nil:
		d.Log.Debugf("ffprobe unavailable for %s, using decoded length: %v", source, err)
	case meta.DurationSec > 0:
		duration = meta.DurationSec
	}
	return a.Candidates, duration, nil
}

// Analyze runs the onset detectors and keeps the per-frame features.
func (d *AudioDetector) Analyze(ctx context.Context, source string) (*onset.Analysis, error) {
	wavPath, err := audio.ConvertToMonoWAV(ctx, source, d.TempDir, audio.ConvertWAVConfig{
		SampleRate: d.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("audio conversion failed: %w", err)
	}
	defer os.Remove(wavPath)

	r, err := audio.OpenWAV(wavPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	a, err := onset.Analyze(r, d.Onset)
	if err != nil {
		return nil, fmt.Errorf("boundary detection failed: %w", err)
	}
	d.Log.Infof("Detected %d flux peaks and %d onsets over %.1fs",
		len(a.Candidates[0]), len(a.Candidates[1]), a.Duration)
	return a, nil
}
