package onset

import (
	"math"
	"slices"
)

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between closest ranks.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	p = min(max(p, 0), 100)
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// localMaxima returns indices whose value is strictly greater than the left
// neighbour and not smaller than the right one. Plateaus report their
// midpoint.
func localMaxima(x []float64) []int {
	var out []int
	i := 1
	for i < len(x)-1 {
		if x[i] > x[i-1] {
			j := i
			for j < len(x)-1 && x[j+1] == x[i] {
				j++
			}
			if j < len(x)-1 && x[j+1] < x[i] {
				out = append(out, (i+j)/2)
				i = j
			}
		}
		i++
	}
	return out
}

// Prominence is how far a peak stands above the higher of the two lowest
// points that separate it from taller terrain on each side.
func Prominence(x []float64, peak int) float64 {
	h := x[peak]
	leftMin := h
	for i := peak - 1; i >= 0 && x[i] <= h; i-- {
		leftMin = min(leftMin, x[i])
	}
	rightMin := h
	for i := peak + 1; i < len(x) && x[i] <= h; i++ {
		rightMin = min(rightMin, x[i])
	}
	return h - max(leftMin, rightMin)
}

// ProminentPeaks returns the local maxima of x whose prominence is at least
// minProminence.
func ProminentPeaks(x []float64, minProminence float64) []int {
	var out []int
	for _, p := range localMaxima(x) {
		if Prominence(x, p) >= minProminence {
			out = append(out, p)
		}
	}
	return out
}

// PickOnsets returns frames where the normalized envelope is the maximum of
// its ±radius neighbourhood and exceeds mean + delta*std. Consecutive picks
// are at least wait frames apart.
func PickOnsets(env []float64, radius int, delta float64, wait int) []int {
	if len(env) == 0 {
		return nil
	}
	peak := slices.Max(env)
	if peak <= 0 {
		return nil
	}
	norm := make([]float64, len(env))
	var sum float64
	for i, v := range env {
		norm[i] = v / peak
		sum += norm[i]
	}
	mean := sum / float64(len(norm))
	var variance float64
	for _, v := range norm {
		variance += (v - mean) * (v - mean)
	}
	threshold := mean + delta*math.Sqrt(variance/float64(len(norm)))

	var out []int
	last := -wait - 1
	for i, v := range norm {
		if v <= threshold || i-last <= wait {
			continue
		}
		lo, hi := max(i-radius, 0), min(i+radius+1, len(norm))
		if v < slices.Max(norm[lo:hi]) {
			continue
		}
		out = append(out, i)
		last = i
	}
	return out
}

// Backtrack moves every onset back to the closest preceding local minimum
// of energy, so boundaries sit where the new sound starts to build up.
func Backtrack(onsets []int, energy []float64) []int {
	out := make([]int, len(onsets))
	for k, i := range onsets {
		j := min(i, len(energy)-1)
		for j > 0 && energy[j-1] < energy[j] {
			j--
		}
		out[k] = max(j, 0)
	}
	return out
}
