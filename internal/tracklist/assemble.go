// Package tracklist turns a smoothed identification sequence into the final
// deduplicated tracklist, its statistics, and the persisted outputs.
package tracklist

import (
	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
)

// Run is everything the assembler needs from the earlier stages.
type Run struct {
	Source      string
	Provider    string
	Boundaries  []float64
	ChunkLength float64
	Raw         []models.IdentificationResult
	Smoothed    []models.IdentificationResult
	Corrections []smoothing.Correction
	Strategy    smoothing.Strategy
	Partial     bool
}

type Stats struct {
	BoundariesAttempted int     `json:"boundaries_attempted"`
	Identified          int     `json:"identified"`
	UniqueTracks        int     `json:"unique_tracks"`
	UniqueBeforeSmooth  int     `json:"unique_before_smoothing"`
	Corrections         int     `json:"corrections"`
	RecognitionRate     float64 `json:"recognition_rate"`
	// RateDefined is false when no boundary was attempted.
	RateDefined bool `json:"rate_defined"`
}

type Report struct {
	Source      string                        `json:"source,omitempty"`
	Provider    string                        `json:"provider,omitempty"`
	Boundaries  []float64                     `json:"boundaries"`
	ChunkLength float64                       `json:"chunk_length"`
	Strategy    smoothing.Strategy            `json:"strategy"`
	Raw         []models.IdentificationResult `json:"-"`
	Entries     []models.TracklistEntry       `json:"entries"`
	Corrections []smoothing.Correction        `json:"corrections,omitempty"`
	Stats       Stats                         `json:"stats"`
	Partial     bool                          `json:"partial,omitempty"`
	Reason      models.Reason                 `json:"reason,omitempty"`
}

// Assemble deduplicates the smoothed sequence and computes summary statistics.
func Assemble(run Run) *Report {
	kept := Dedupe(run.Smoothed)
	entries := make([]models.TracklistEntry, len(kept))
	for i, r := range kept {
		entries[i] = models.TracklistEntry{
			Timestamp: r.Timestamp,
			Artist:    r.Artist,
			Title:     r.Title,
			Note:      r.Note,
		}
	}

	boundaries := run.Boundaries
	if boundaries == nil {
		boundaries = []float64{}
	}

	rate, defined := RecognitionRate(len(run.Raw), len(boundaries))
	return &Report{
		Source:      run.Source,
		Provider:    run.Provider,
		Boundaries:  boundaries,
		ChunkLength: run.ChunkLength,
		Strategy:    run.Strategy,
		Raw:         run.Raw,
		Entries:     entries,
		Corrections: run.Corrections,
		Partial:     run.Partial,
		Stats: Stats{
			BoundariesAttempted: len(boundaries),
			Identified:          len(run.Raw),
			UniqueTracks:        len(entries),
			UniqueBeforeSmooth:  len(Dedupe(run.Raw)),
			Corrections:         len(run.Corrections),
			RecognitionRate:     rate,
			RateDefined:         defined,
		},
	}
}

// Degenerate is the empty report returned alongside a validation failure.
func Degenerate(source string, reason models.Reason) *Report {
	r := Assemble(Run{Source: source, Strategy: smoothing.StrategyNone})
	r.Reason = reason
	return r
}

// Dedupe keeps only the first entry of every run of consecutive identical
// identities. Running it twice yields the same result as once.
func Dedupe(results []models.IdentificationResult) []models.IdentificationResult {
	out := make([]models.IdentificationResult, 0, len(results))
	lastKey := ""
	for _, r := range results {
		key := r.Identity().Key()
		if len(out) > 0 && key == lastKey {
			continue
		}
		out = append(out, r)
		lastKey = key
	}
	return out
}

// RecognitionRate is identified/attempted clamped to [0,1]. With nothing
// attempted the rate is undefined and reported as zero.
func RecognitionRate(identified, attempted int) (float64, bool) {
	if attempted <= 0 {
		return 0, false
	}
	rate := float64(identified) / float64(attempted)
	return min(max(rate, 0), 1), true
}
