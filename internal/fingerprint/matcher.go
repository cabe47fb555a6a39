package fingerprint

import (
	"cmp"
	"math"
	"slices"

	"github.com/himanishpuri/SetlistDNA/pkg/models"
)

// Fingerprint groups the hashes of a reference recording by address.
func Fingerprint(hashes []Hash, songID string) map[uint32][]models.Couple {
	fp := make(map[uint32][]models.Couple)
	for _, h := range hashes {
		fp[h.Address] = append(fp[h.Address], models.Couple{SongID: songID, AnchorTimeMs: h.AnchorMs})
	}
	return fp
}

// Addresses returns the distinct addresses of hashes.
func Addresses(hashes []Hash) []uint32 {
	seen := make(map[uint32]struct{}, len(hashes))
	out := make([]uint32, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h.Address]; ok {
			continue
		}
		seen[h.Address] = struct{}{}
		out = append(out, h.Address)
	}
	return out
}

// Match votes for (song, offset) pairs: every reference couple sharing an
// address with a query hash votes for refAnchor - queryAnchor. Each song is
// scored by its best offset; results are ordered by votes, descending.
func Match(query []Hash, db map[uint32][]models.Couple) []models.Match {
	votes := make(map[string]map[int32]int)
	for _, h := range query {
		for _, c := range db[h.Address] {
			offset := int32(c.AnchorTimeMs) - int32(h.AnchorMs)
			m := votes[c.SongID]
			if m == nil {
				m = make(map[int32]int)
				votes[c.SongID] = m
			}
			m[offset]++
		}
	}

	matches := make([]models.Match, 0, len(votes))
	for songID, offsets := range votes {
		best := models.Match{SongID: songID}
		for off, n := range offsets {
			if n > best.Count || (n == best.Count && off < best.OffsetMs) {
				best.Count, best.OffsetMs = n, off
			}
		}
		matches = append(matches, best)
	}
	slices.SortFunc(matches, func(a, b models.Match) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.SongID, b.SongID)
	})
	return matches
}

// Confidence maps aligned votes to a 0-100 score. The ratio is taken
// against the smaller of the two fingerprint sizes and passed through a
// logistic curve centred at 15%; very strong overlaps get a boost and
// fewer than five votes are penalized.
func Confidence(votes, queryCount, refCount int) float64 {
	if votes <= 0 || queryCount <= 0 || refCount <= 0 {
		return 0
	}
	ratio := float64(votes) / float64(min(queryCount, refCount))

	const (
		steepness = 20.0
		midpoint  = 0.15
	)
	conf := 100 / (1 + math.Exp(-steepness*(ratio-midpoint)))
	if ratio > 0.30 {
		conf = math.Min(100, conf+(ratio-0.30)*50)
	}
	if votes < 5 {
		conf *= float64(votes) / 5
	}
	return conf
}
