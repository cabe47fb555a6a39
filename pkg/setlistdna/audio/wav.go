package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVReader streams a PCM WAV file as mono float64 samples in [-1, 1],
// averaging channels. Only one block of samples is held at a time.
type WAVReader struct {
	f        *os.File
	dec      *wav.Decoder
	buf      *goaudio.IntBuffer
	channels int
	rate     int
	scale    float64
}

func OpenWAV(path string) (*WAVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	if dec.WavAudioFormat != 1 {
		f.Close()
		return nil, fmt.Errorf("%s: unsupported WAV audio format %d (want PCM)", path, dec.WavAudioFormat)
	}
	if err := dec.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: locating PCM data: %w", path, err)
	}

	channels := max(int(dec.NumChans), 1)
	return &WAVReader{
		f:        f,
		dec:      dec,
		channels: channels,
		rate:     int(dec.SampleRate),
		scale:    1.0 / float64(int(1)<<(uint(dec.BitDepth)-1)),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
			SourceBitDepth: int(dec.BitDepth),
		},
	}, nil
}

func (r *WAVReader) SampleRate() int { return r.rate }

// ReadSamples fills dst with up to len(dst) mono samples.
func (r *WAVReader) ReadSamples(dst []float64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	want := len(dst) * r.channels
	if cap(r.buf.Data) < want {
		r.buf.Data = make([]int, want)
	}
	r.buf.Data = r.buf.Data[:want]

	n, err := r.dec.PCMBuffer(r.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decoding PCM: %w", err)
	}
	frames := n / r.channels
	if frames == 0 {
		return 0, io.EOF
	}

	for i := range frames {
		var sum int
		for c := range r.channels {
			sum += r.buf.Data[i*r.channels+c]
		}
		dst[i] = float64(sum) * r.scale / float64(r.channels)
	}
	return frames, nil
}

func (r *WAVReader) Close() error {
	return r.f.Close()
}

// ReadWavAsFloat64 decodes a whole WAV file into mono samples. Meant for
// short inputs such as recognizer segments and library tracks.
func ReadWavAsFloat64(path string) ([]float64, int, error) {
	r, err := OpenWAV(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	var out []float64
	block := make([]float64, 16384)
	for {
		n, err := r.ReadSamples(block)
		out = append(out, block[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}
	return out, r.SampleRate(), nil
}

// WriteWAV encodes mono samples in [-1, 1] as 16-bit PCM.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		s = min(max(s, -1), 1)
		data[i] = int(s * 32767)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encoding WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing WAV: %w", err)
	}
	return f.Close()
}
