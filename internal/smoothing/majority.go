package smoothing

import "github.com/himanishpuri/SetlistDNA/pkg/models"

// MajorityVote replaces entry i with the majority identity of its window
// (up to WindowSize/2 neighbours on each side, i excluded) when entry i lasts
// less than MinTrackDuration, differs from the majority, and the majority
// holds at least 60% of the window. Sequences shorter than three entries are
// returned unchanged.
func MajorityVote(results []models.IdentificationResult, opts Options) ([]models.IdentificationResult, []Correction) {
	out := clone(results)
	if len(results) < minSequenceLen {
		return out, nil
	}

	half := opts.WindowSize / 2
	var corrections []Correction

	for i := range results {
		lo := max(0, i-half)
		hi := min(len(results)-1, i+half)

		v, ok := tally(results, lo, hi, i)
		if !ok {
			continue
		}

		duration := durationAt(results, i, opts.LastTrackDuration)
		current := results[i].Identity()

		if duration >= opts.MinTrackDuration ||
			current.Key() == v.key ||
			float64(v.count) < majorityShare*float64(v.size) {
			continue
		}

		out[i] = corrected(results[i], v.donor)
		corrections = append(corrections, Correction{
			Index:       i,
			Timestamp:   results[i].Timestamp,
			Original:    current,
			CorrectedTo: v.donor,
			Duration:    duration,
		})
	}
	return out, corrections
}

type vote struct {
	key   string
	count int
	size  int
	// donor is the first window member carrying the majority identity;
	// its artist and title spelling is what gets copied.
	donor models.Identity
}

// tally counts identities in results[lo..hi] excluding skip. Ties go to the
// identity seen first in window order. ok is false for an empty window.
func tally(results []models.IdentificationResult, lo, hi, skip int) (vote, bool) {
	counts := make(map[string]int)
	first := make(map[string]models.Identity)
	var order []string
	size := 0

	for j := lo; j <= hi; j++ {
		if j == skip {
			continue
		}
		size++
		id := results[j].Identity()
		k := id.Key()
		if _, seen := first[k]; !seen {
			first[k] = id
			order = append(order, k)
		}
		counts[k]++
	}
	if size == 0 {
		return vote{}, false
	}

	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return vote{key: best, count: counts[best], size: size, donor: first[best]}, true
}
