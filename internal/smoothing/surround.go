package smoothing

import "github.com/himanishpuri/SetlistDNA/pkg/models"

// Surround replaces an interior entry with its predecessor's identity when
// the predecessor and successor agree with each other, disagree with the
// entry, and the entry lasts less than minTrackDuration. The first and last
// entries always pass through.
func Surround(results []models.IdentificationResult, minTrackDuration float64) ([]models.IdentificationResult, []Correction) {
	out := clone(results)
	if len(results) < minSequenceLen {
		return out, nil
	}

	var corrections []Correction
	for i := 1; i < len(results)-1; i++ {
		prev := results[i-1].Identity()
		curr := results[i].Identity()
		next := results[i+1].Identity()
		duration := durationAt(results, i, 0)

		if !prev.Same(next) || prev.Same(curr) || duration >= minTrackDuration {
			continue
		}

		out[i] = corrected(results[i], prev)
		corrections = append(corrections, Correction{
			Index:       i,
			Timestamp:   results[i].Timestamp,
			Original:    curr,
			CorrectedTo: prev,
			Duration:    duration,
		})
	}
	return out, corrections
}
