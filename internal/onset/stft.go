package onset

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Frame holds the per-frame features the detectors need. Spectra are not
// kept, so memory grows with the frame count only.
type Frame struct {
	// Flux is the euclidean distance between this magnitude spectrum and
	// the previous one.
	Flux float64
	// Strength is the mean half-wave-rectified increase in log magnitude.
	Strength float64
	// Energy is the RMS of the windowed frame.
	Energy float64
}

// stft slides a window over a sample stream and reduces every frame to its
// features as soon as it is complete.
type stft struct {
	size, hop int
	win       []float64
	buf       []float64
	frame     []float64
	prevMag   []float64
	frames    []Frame
}

func newSTFT(size, hop int) *stft {
	return &stft{
		size:  size,
		hop:   hop,
		win:   window.Hamming(size),
		buf:   make([]float64, 0, size*2),
		frame: make([]float64, size),
	}
}

// push appends samples and processes every frame they complete.
func (s *stft) push(samples []float64) {
	s.buf = append(s.buf, samples...)
	consumed := 0
	for len(s.buf)-consumed >= s.size {
		s.process(s.buf[consumed : consumed+s.size])
		consumed += s.hop
	}
	if consumed > 0 {
		s.buf = append(s.buf[:0], s.buf[consumed:]...)
	}
}

func (s *stft) process(block []float64) {
	var sumSq float64
	for i, v := range block {
		w := v * s.win[i]
		s.frame[i] = w
		sumSq += w * w
	}

	spec := fft.FFTReal(s.frame)
	bins := s.size/2 + 1
	mag := make([]float64, bins)
	for i := range bins {
		mag[i] = cmplx.Abs(spec[i])
	}

	f := Frame{Energy: math.Sqrt(sumSq / float64(s.size))}
	if s.prevMag != nil {
		var flux, rise float64
		for i := range bins {
			d := mag[i] - s.prevMag[i]
			flux += d * d
			if r := math.Log1p(mag[i]) - math.Log1p(s.prevMag[i]); r > 0 {
				rise += r
			}
		}
		f.Flux = math.Sqrt(flux)
		f.Strength = rise / float64(bins)
	}
	s.prevMag = mag
	s.frames = append(s.frames, f)
}
