package tracklist

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
)

// Record is the persisted structured output. It keeps the pre-smoothing
// sequence so smoothing can be replayed with other parameters.
type Record struct {
	Boundaries  []float64     `json:"boundaries"`
	ChunkLength float64       `json:"chunk_length"`
	Results     []RecordEntry `json:"results"`
}

type RecordEntry struct {
	Timestamp          int               `json:"timestamp"`
	TimestampFormatted string            `json:"timestamp_formatted"`
	Artist             string            `json:"artist"`
	Title              string            `json:"title"`
	Confidence         models.Confidence `json:"confidence"`
	Note               string            `json:"note,omitempty"`
}

// Record builds the structured record of the report.
func (r *Report) Record() *Record {
	rec := &Record{
		Boundaries:  r.Boundaries,
		ChunkLength: r.ChunkLength,
		Results:     make([]RecordEntry, 0, len(r.Raw)),
	}
	if rec.Boundaries == nil {
		rec.Boundaries = []float64{}
	}
	for _, res := range r.Raw {
		rec.Results = append(rec.Results, RecordEntry{
			Timestamp:          wholeSeconds(res.Timestamp),
			TimestampFormatted: FormatTimestamp(res.Timestamp),
			Artist:             res.Artist,
			Title:              res.Title,
			Confidence:         res.Confidence,
			Note:               res.Note,
		})
	}
	return rec
}

// IdentificationResults converts the persisted entries back into the
// pipeline's value type. Entries graded none are left out.
func (rec *Record) IdentificationResults() []models.IdentificationResult {
	out := make([]models.IdentificationResult, 0, len(rec.Results))
	for _, e := range rec.Results {
		conf := e.Confidence
		if conf == models.ConfidenceNone {
			continue
		}
		if conf == "" {
			conf = models.ConfidenceHigh
		}
		out = append(out, models.IdentificationResult{
			Timestamp:  float64(e.Timestamp),
			Artist:     e.Artist,
			Title:      e.Title,
			Confidence: conf,
			Note:       e.Note,
		})
	}
	return out
}

// Replay smooths the persisted sequence with opts and assembles a fresh
// report. No audio is touched.
func (rec *Record) Replay(opts smoothing.Options, provider string) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	raw := rec.IdentificationResults()
	smoothed, corrections := smoothing.Smooth(raw, opts)
	return Assemble(Run{
		Provider:    provider,
		Boundaries:  rec.Boundaries,
		ChunkLength: rec.ChunkLength,
		Raw:         raw,
		Smoothed:    smoothed,
		Corrections: corrections,
		Strategy:    opts.Strategy,
	}), nil
}

func (rec *Record) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rec)
}

func ReadRecord(r io.Reader) (*Record, error) {
	var rec Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding results record: %w", err)
	}
	if rec.ChunkLength < 0 {
		return nil, models.Invalid(models.ReasonInvalidParameter, "chunk_length must not be negative")
	}
	for i, e := range rec.Results {
		if !e.Confidence.Valid() {
			return nil, models.Invalid(models.ReasonInvalidParameter, "results[%d]: unknown confidence %q", i, e.Confidence)
		}
	}
	return &rec, nil
}

func LoadRecord(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecord(f)
}

// OutputPaths returns the results JSON and tracklist text paths written next
// to the source recording.
func OutputPaths(source string) (resultsPath, tracklistPath string) {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	return base + "_boundaries_results.json", base + "_boundaries_tracklist.txt"
}
