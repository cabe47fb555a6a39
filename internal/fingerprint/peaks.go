package fingerprint

import (
	"cmp"
	"math"
	"slices"
)

// Peak is a spectral landmark.
type Peak struct {
	TimeIdx int     // frame index in the spectrogram
	FreqIdx int     // frequency bin index
	Time    float64 // seconds
	Freq    float64 // Hz
	MagDB   float64
}

const (
	freqNeighbour = 3 // +/- bins checked for the local maximum
	timeNeighbour = 1 // +/- frames checked for the local maximum
	minDbAboveAvg = 3.0
	eps           = 1e-10
)

// logBands splits [0, nBins) into bands that double in width.
func logBands(nBins int) [][2]int {
	bands := [][2]int{{0, min(10, nBins)}}
	for start := 10; start < nBins; start *= 2 {
		end := min(start*2, nBins)
		bands = append(bands, [2]int{start, end})
	}
	return bands
}

// ExtractPeaks keeps, per frame, the strongest bin of each logarithmic band
// when it is a local maximum of its neighbourhood and stands out from the
// frame's band average. Peaks come back ordered by time, then frequency.
func ExtractPeaks(spec [][]float64, sampleRate int, p Params) []Peak {
	if len(spec) == 0 || len(spec[0]) == 0 {
		return nil
	}
	nFrames, nBins := len(spec), len(spec[0])
	frameTime := p.FrameSeconds(sampleRate)
	binHz := p.BinHz(sampleRate)
	bands := logBands(nBins)

	peaks := make([]Peak, 0, nFrames*2)
	bandMag := make([]float64, len(bands))
	bandIdx := make([]int, len(bands))

	for t, frame := range spec {
		var sumDb float64
		for b, band := range bands {
			bandMag[b], bandIdx[b] = 0, band[0]
			for i := band[0]; i < band[1]; i++ {
				if frame[i] > bandMag[b] {
					bandMag[b], bandIdx[b] = frame[i], i
				}
			}
			sumDb += 20 * math.Log10(bandMag[b]+eps)
		}
		avgDb := sumDb / float64(len(bands))

		for b, mag := range bandMag {
			if mag <= 0 {
				continue
			}
			magDb := 20 * math.Log10(mag+eps)
			if magDb < avgDb+minDbAboveAvg {
				continue
			}
			bin := bandIdx[b]
			if !isLocalMax(spec, t, bin, mag) {
				continue
			}
			peaks = append(peaks, Peak{
				TimeIdx: t,
				FreqIdx: bin,
				Time:    float64(t) * frameTime,
				Freq:    float64(bin) * binHz,
				MagDB:   magDb,
			})
		}
	}

	slices.SortFunc(peaks, func(a, b Peak) int {
		if c := cmp.Compare(a.TimeIdx, b.TimeIdx); c != 0 {
			return c
		}
		return cmp.Compare(a.FreqIdx, b.FreqIdx)
	})
	return peaks
}

func isLocalMax(spec [][]float64, t, bin int, mag float64) bool {
	for dt := -timeNeighbour; dt <= timeNeighbour; dt++ {
		ti := t + dt
		if ti < 0 || ti >= len(spec) {
			continue
		}
		for df := -freqNeighbour; df <= freqNeighbour; df++ {
			fi := bin + df
			if fi < 0 || fi >= len(spec[ti]) || (dt == 0 && df == 0) {
				continue
			}
			if spec[ti][fi] > mag {
				return false
			}
		}
	}
	return true
}
