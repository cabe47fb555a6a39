// Package boundary merges candidate track boundaries from independent
// detectors into one ordered, minimally separated sequence.
package boundary

import (
	"math"
	"slices"
)

// DefaultMinSeparation is the minimum gap in seconds between two accepted boundaries.
const DefaultMinSeparation = 30.0

// Reconcile unions all candidate lists, sorts them and greedily keeps every
// candidate at least minSeparation seconds after the previously kept one.
//
// The output is strictly increasing and is a subsequence of the sorted union:
// values are only filtered, never altered. Negative, NaN and infinite
// candidates are not valid points in a recording and are dropped.
func Reconcile(candidateLists [][]float64, minSeparation float64) []float64 {
	union := make([]float64, 0, totalLen(candidateLists))
	for _, list := range candidateLists {
		for _, c := range list {
			if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
				continue
			}
			union = append(union, c)
		}
	}
	if len(union) == 0 {
		return []float64{}
	}

	slices.Sort(union)
	union = slices.Compact(union)

	accepted := make([]float64, 0, len(union))
	last := -minSeparation
	for _, c := range union {
		if c-last >= minSeparation {
			accepted = append(accepted, c)
			last = c
		}
	}
	return accepted
}

// Compliant reports whether boundaries is strictly increasing with every
// adjacent gap at least minSeparation.
func Compliant(boundaries []float64, minSeparation float64) bool {
	for i := 1; i < len(boundaries); i++ {
		gap := boundaries[i] - boundaries[i-1]
		if gap <= 0 || gap < minSeparation {
			return false
		}
	}
	return true
}

func totalLen(lists [][]float64) int {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	return n
}
