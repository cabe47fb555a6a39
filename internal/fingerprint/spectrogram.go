// Package fingerprint builds landmark fingerprints (pairs of spectral peaks)
// and matches query fingerprints against a reference set by offset voting.
package fingerprint

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Params controls the STFT the peaks are picked from.
type Params struct {
	WindowSize int
	HopSize    int
}

func DefaultParams() Params {
	return Params{WindowSize: 1024, HopSize: 256}
}

// FrameSeconds is the time step between two spectrogram frames.
func (p Params) FrameSeconds(sampleRate int) float64 {
	return float64(p.HopSize) / float64(sampleRate)
}

// BinHz is the frequency resolution of one FFT bin.
func (p Params) BinHz(sampleRate int) float64 {
	return float64(sampleRate) / float64(p.WindowSize)
}

var ErrShortInput = errors.New("input shorter than window size")

// Spectrogram returns the time-major magnitude spectrogram of samples:
// spec[frame][bin], positive frequencies only.
func Spectrogram(samples []float64, p Params) ([][]float64, error) {
	if p.WindowSize <= 0 || p.HopSize <= 0 {
		return nil, errors.New("window and hop size must be positive")
	}
	if len(samples) < p.WindowSize {
		return nil, ErrShortInput
	}

	win := window.Hamming(p.WindowSize)
	frame := make([]float64, p.WindowSize)
	spec := make([][]float64, 0, (len(samples)-p.WindowSize)/p.HopSize+1)

	for start := 0; start+p.WindowSize <= len(samples); start += p.HopSize {
		for i, w := range win {
			frame[i] = samples[start+i] * w
		}
		spectrum := fft.FFTReal(frame)
		mag := make([]float64, p.WindowSize/2)
		for i := range mag {
			mag[i] = cmplx.Abs(spectrum[i])
		}
		spec = append(spec, mag)
	}
	return spec, nil
}
