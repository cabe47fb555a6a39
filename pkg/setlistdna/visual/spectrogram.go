// Package visual renders spectrogram images of a recording with the
// reconciled track boundaries drawn on top.
package visual

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/SetlistDNA/pkg/utils"
)

const (
	DefaultWidth  = 2048
	DefaultHeight = 512
	markerWidth   = 2
)

var markerColor = color.RGBA{R: 0xff, G: 0x30, B: 0x30, A: 0xff}

type Options struct {
	Width  int
	Height int
	// Boundaries are drawn as vertical lines, in seconds.
	Boundaries []float64
	// Log10 renders magnitudes on a log scale.
	Log10 bool
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

// Render draws the FFT spectrogram of samples across the whole image.
func Render(samples []float64, sampleRate int, opts Options) (draw.Image, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples to render")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	opts = opts.withDefaults()

	img := spectrogram.NewImage128(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(spectrogram.ParseColor("000000")), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude.
	spectrogram.Drawfft(img, samples, uint32(sampleRate), uint32(opts.Height), false, false, true, opts.Log10)

	duration := float64(len(samples)) / float64(sampleRate)
	MarkBoundaries(img, opts.Boundaries, duration)
	return img, nil
}

// MarkBoundaries draws a vertical line for every boundary inside
// [0, duration).
func MarkBoundaries(img draw.Image, boundaries []float64, duration float64) {
	if duration <= 0 {
		return
	}
	b := img.Bounds()
	width := b.Dx()
	for _, t := range boundaries {
		if t < 0 || t >= duration {
			continue
		}
		x := b.Min.X + int(math.Round(t/duration*float64(width-1)))
		line := image.Rect(x, b.Min.Y, min(x+markerWidth, b.Max.X), b.Max.Y)
		draw.Draw(img, line, image.NewUniform(markerColor), image.Point{}, draw.Src)
	}
}

// WritePNG renders samples and saves the image to path.
func WritePNG(path string, samples []float64, sampleRate int, opts Options) error {
	img, err := Render(samples, sampleRate, opts)
	if err != nil {
		return err
	}
	if err := utils.CreateFolderForFile(path); err != nil {
		return err
	}
	return spectrogram.SavePng(img.(*spectrogram.Image128), path)
}
