package tracklist

import (
	"fmt"
	"io"
	"strings"

	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
)

// Text renders the human-readable tracklist: a header line, one line per
// entry, and a trailing statistics block.
func (r *Report) Text() string {
	var b strings.Builder
	_ = r.WriteText(&b)
	return b.String()
}

func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	provider := r.Provider
	if provider == "" {
		provider = "recognizer"
	}
	chunk := fmt.Sprintf("%gs", r.ChunkLength)

	fmt.Fprintf(&b, "🎵 TRACKLIST (Boundary Detection + %s %s) 🎵\n\n", provider, chunk)
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "%s %s - %s\n", FormatTimestamp(e.Timestamp), e.Artist, e.Title)
	}

	smoothed := "no smoothing"
	if r.Strategy != "" && r.Strategy != smoothing.StrategyNone {
		smoothed = fmt.Sprintf("%s smoothing", r.Strategy)
	}
	fmt.Fprintf(&b, "\n✨ Generated using boundary detection + %s (%s chunks, %s)\n", provider, chunk, smoothed)

	s := r.Stats
	if s.RateDefined {
		fmt.Fprintf(&b, "📊 Recognition Rate: %d/%d boundaries (%.1f%%)\n",
			s.Identified, s.BoundariesAttempted, s.RecognitionRate*100)
	} else {
		fmt.Fprintf(&b, "📊 Recognition Rate: %d/%d boundaries (n/a)\n", s.Identified, s.BoundariesAttempted)
	}
	fmt.Fprintf(&b, "🎵 Unique Tracks: %d\n", s.UniqueTracks)
	if s.Corrections > 0 {
		fmt.Fprintf(&b, "🧹 Smoothing Corrections: %d (unique tracks before smoothing: %d)\n",
			s.Corrections, s.UniqueBeforeSmooth)
	}
	if r.Partial {
		b.WriteString("⚠️  Partial run: identification was interrupted\n")
	}
	if r.Reason != "" {
		fmt.Fprintf(&b, "⚠️  No tracklist: %s\n", r.Reason)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
