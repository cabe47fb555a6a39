// Package smoothing corrects isolated misidentifications in a time-ordered
// identification sequence. A short-lived identity surrounded by a consistent
// alternative is treated as a fingerprinting error during a transition.
//
// Two strategies exist and they can disagree on the same input. Majority vote
// is canonical; surround pattern is the stricter three-point rule.
package smoothing

import (
	"fmt"
	"math"

	"github.com/himanishpuri/SetlistDNA/pkg/models"
)

type Strategy string

const (
	StrategyMajority Strategy = "majority"
	StrategySurround Strategy = "surround"
	StrategyNone     Strategy = "none"
)

const (
	DefaultWindowSize        = 5
	DefaultMinTrackDuration  = 120.0
	DefaultLastTrackDuration = 300.0

	// majorityShare is the fraction of the window the majority must reach.
	majorityShare = 0.6
	// minSequenceLen is the shortest sequence either strategy touches.
	minSequenceLen = 3
)

// ParseStrategy accepts "majority", "surround" or "none".
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyMajority, StrategySurround, StrategyNone:
		return Strategy(s), nil
	case "":
		return StrategyMajority, nil
	}
	return "", fmt.Errorf("unknown smoothing strategy %q (want majority, surround or none)", s)
}

type Options struct {
	Strategy         Strategy
	WindowSize       int
	MinTrackDuration float64
	// LastTrackDuration stands in for the duration of the final entry,
	// which has no successor to bound it.
	LastTrackDuration float64
}

func DefaultOptions() Options {
	return Options{
		Strategy:          StrategyMajority,
		WindowSize:        DefaultWindowSize,
		MinTrackDuration:  DefaultMinTrackDuration,
		LastTrackDuration: DefaultLastTrackDuration,
	}
}

// Validate rejects options no strategy can run with.
func (o Options) Validate() error {
	if _, err := ParseStrategy(string(o.Strategy)); err != nil {
		return models.Invalid(models.ReasonInvalidParameter, "%v", err)
	}
	if o.WindowSize < 1 {
		return models.Invalid(models.ReasonInvalidParameter, "window size must be at least 1, got %d", o.WindowSize)
	}
	if o.MinTrackDuration < 0 {
		return models.Invalid(models.ReasonInvalidParameter, "min track duration must not be negative, got %g", o.MinTrackDuration)
	}
	if o.LastTrackDuration < 0 {
		return models.Invalid(models.ReasonInvalidParameter, "last track duration must not be negative, got %g", o.LastTrackDuration)
	}
	return nil
}

// Correction records one replaced entry.
type Correction struct {
	Index       int             `json:"index"`
	Timestamp   float64         `json:"timestamp"`
	Original    models.Identity `json:"original"`
	CorrectedTo models.Identity `json:"corrected_to"`
	Duration    float64         `json:"duration"`
}

// Smooth runs the strategy selected in opts. The input is never modified.
func Smooth(results []models.IdentificationResult, opts Options) ([]models.IdentificationResult, []Correction) {
	switch opts.Strategy {
	case StrategySurround:
		return Surround(results, opts.MinTrackDuration)
	case StrategyNone:
		return clone(results), nil
	default:
		return MajorityVote(results, opts)
	}
}

// durationAt is the time from entry i to its successor, or fallback for the
// last entry. Timestamps count in whole seconds, the resolution the results
// record persists, so a replay sees the same durations as the live run.
func durationAt(results []models.IdentificationResult, i int, fallback float64) float64 {
	if i < len(results)-1 {
		return math.Trunc(results[i+1].Timestamp) - math.Trunc(results[i].Timestamp)
	}
	return fallback
}

func corrected(r models.IdentificationResult, to models.Identity) models.IdentificationResult {
	r.Note = fmt.Sprintf("smoothed from %s", r.Identity())
	r.Artist = to.Artist
	r.Title = to.Title
	return r
}

func clone(results []models.IdentificationResult) []models.IdentificationResult {
	out := make([]models.IdentificationResult, len(results))
	copy(out, results)
	return out
}
