package fingerprint

import (
	"math"
	"slices"
)

const (
	// Bits for each frequency index and for the anchor-target delta (ms).
	freqBits  = 9
	deltaBits = 14

	// FanOut is how many later peaks each anchor is paired with.
	FanOut     = 6
	MinDeltaMs = 10
	MaxDeltaMs = 15000
)

// Hash is one anchor-target pair: the packed address and where the anchor
// sits in its recording.
type Hash struct {
	Address  uint32
	AnchorMs uint32
}

// address packs [anchor freq | target freq | delta ms]. ok is false when the
// pair does not fit the layout or its delta is out of range.
func address(anchor, target Peak) (uint32, bool) {
	deltaMs := math.Round((target.Time - anchor.Time) * 1000)
	if deltaMs < MinDeltaMs || deltaMs > MaxDeltaMs {
		return 0, false
	}
	const (
		freqMask  = 1<<freqBits - 1
		deltaMask = 1<<deltaBits - 1
	)
	a, t, d := uint32(anchor.FreqIdx), uint32(target.FreqIdx), uint32(deltaMs)
	if a > freqMask || t > freqMask || d > deltaMask {
		return 0, false
	}
	return a<<(deltaBits+freqBits) | t<<deltaBits | d, true
}

// Hashes pairs every peak with up to FanOut representable successors.
func Hashes(peaks []Peak) []Hash {
	sorted := slices.Clone(peaks)
	slices.SortStableFunc(sorted, func(a, b Peak) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})

	out := make([]Hash, 0, len(sorted)*FanOut)
	for i, anchor := range sorted {
		anchorMs := uint32(math.Round(anchor.Time * 1000))
		paired := 0
		for j := i + 1; j < len(sorted) && paired < FanOut; j++ {
			addr, ok := address(anchor, sorted[j])
			if !ok {
				continue
			}
			out = append(out, Hash{Address: addr, AnchorMs: anchorMs})
			paired++
		}
	}
	return out
}
