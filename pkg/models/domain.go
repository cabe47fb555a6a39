package models

import (
	"strings"

	"golang.org/x/text/cases"
)

// PlaceholderName replaces an artist or title the recognizer left empty.
const PlaceholderName = "Unknown"

// Confidence grades an identification result. The recognizer only emits
// high; none marks a persisted entry that was rejected on review and is
// treated as a no-match when the record is replayed.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceNone Confidence = "none"
)

// Valid reports whether c is a known grade. Empty counts as high.
func (c Confidence) Valid() bool {
	return c == "" || c == ConfidenceHigh || c == ConfidenceNone
}

// Identity is the (artist, title) pair that names a track.
type Identity struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Key returns the case-folded form used for equality and tallies.
// A Caser is stateful, so each call builds its own.
func (id Identity) Key() string {
	fold := cases.Fold()
	return fold.String(id.Artist) + "\x00" + fold.String(id.Title)
}

// Same reports whether two identities name the same track, ignoring case.
func (id Identity) Same(other Identity) bool {
	return id.Key() == other.Key()
}

func (id Identity) String() string {
	return id.Artist + " - " + id.Title
}

// Normalized fills blank fields with PlaceholderName.
// The second return value is false when a field had to be substituted.
func (id Identity) Normalized() (Identity, bool) {
	ok := true
	if strings.TrimSpace(id.Artist) == "" {
		id.Artist = PlaceholderName
		ok = false
	}
	if strings.TrimSpace(id.Title) == "" {
		id.Title = PlaceholderName
		ok = false
	}
	return id, ok
}

// IdentificationResult is one matched segment of the recording.
type IdentificationResult struct {
	Timestamp  float64    `json:"timestamp"`      // Segment start in seconds
	Artist     string     `json:"artist"`         // Artist as reported by the recognizer
	Title      string     `json:"title"`          // Title as reported by the recognizer
	Confidence Confidence `json:"confidence"`     // ConfidenceHigh for emitted results
	Note       string     `json:"note,omitempty"` // Provenance note set by smoothing
}

// Identity returns the track identity of the result.
func (r IdentificationResult) Identity() Identity {
	return Identity{Artist: r.Artist, Title: r.Title}
}

// TracklistEntry is a fully resolved line of the final tracklist.
type TracklistEntry struct {
	Timestamp float64 `json:"timestamp"`
	Artist    string  `json:"artist"`
	Title     string  `json:"title"`
	Note      string  `json:"note,omitempty"`
}

// Song is a reference track in the local fingerprint library.
type Song struct {
	ID         string // Database ID (UUID)
	Title      string // Song title
	Artist     string // Artist name
	YouTubeID  string // YouTube video ID (if available)
	DurationMs int    // Duration in milliseconds
}

// MatchResult is a library lookup outcome with scoring.
type MatchResult struct {
	SongID     string  // Database ID of the matched song (UUID)
	Title      string  // Song title
	Artist     string  // Artist name
	YouTubeID  string  // YouTube video ID (if available)
	Score      int     // Number of aligned fingerprint hashes
	OffsetMs   int32   // Time offset in milliseconds
	Confidence float64 // Match confidence as a percentage (0-100)
}
