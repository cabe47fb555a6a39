package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/utils"
)

const (
	DefaultAnalysisRate   = 11025
	DefaultConvertTimeout = 10 * time.Minute
	DefaultExtractTimeout = 30 * time.Second
)

type ConvertWAVConfig struct {
	SampleRate int // e.g. 11025, 22050, 44100
	Timeout    time.Duration
}

// ConvertToMonoWAV converts an audio file to mono 16-bit PCM WAV in
// outputDir. The output name is unique per call.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultAnalysisRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConvertTimeout
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, fmt.Sprintf("%s-%s.wav", base, uuid.NewString()[:8]))
	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "error",
		"-i", inputPath,
		"-vn",
		"-ac", "1", // mono
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, strings.TrimSpace(string(out)))
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

// Segment is a transcoded window of a source recording on disk.
type Segment struct {
	Path     string
	Source   string
	SourceID string
	Start    float64
	Length   float64
}

// Close removes the segment file.
func (s *Segment) Close() error {
	if s == nil || s.Path == "" {
		return nil
	}
	return utils.RemoveIfExists(s.Path)
}

const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

type ExtractConfig struct {
	// Format is mp3 (what remote recognizers expect) or wav.
	Format     string
	SampleRate int
	Channels   int
	Timeout    time.Duration
}

func DefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		Format:     FormatMP3,
		SampleRate: 44100,
		Channels:   2,
		Timeout:    DefaultExtractTimeout,
	}
}

// FFmpegExtractor cuts segments out of a source file with ffmpeg.
type FFmpegExtractor struct {
	tempDir string
	cfg     ExtractConfig
}

func NewFFmpegExtractor(tempDir string, cfg ExtractConfig) *FFmpegExtractor {
	def := DefaultExtractConfig()
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = def.Channels
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpegExtractor{tempDir: tempDir, cfg: cfg}
}

func (e *FFmpegExtractor) codecArgs() []string {
	args := []string{"-vn", "-ac", strconv.Itoa(e.cfg.Channels), "-ar", strconv.Itoa(e.cfg.SampleRate)}
	if e.cfg.Format == FormatWAV {
		return append(args, "-c:a", "pcm_s16le")
	}
	return append(args, "-c:a", "libmp3lame", "-b:a", "192k")
}

// Extract writes [start, start+length) of source to a fresh temp file.
// Failures are tagged with models.ErrExtraction.
func (e *FFmpegExtractor) Extract(ctx context.Context, source string, start, length float64) (*Segment, error) {
	if length <= 0 || start < 0 {
		return nil, models.Wrap(models.ErrExtraction, fmt.Sprintf("invalid window %.2fs+%.2fs", start, length), nil)
	}
	if err := utils.MakeDir(e.tempDir); err != nil {
		return nil, models.Wrap(models.ErrExtraction, "creating temp dir", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	out := filepath.Join(e.tempDir, fmt.Sprintf("segment-%s.%s", uuid.NewString(), e.cfg.Format))
	args := []string{
		"-y", "-v", "error",
		"-ss", strconv.FormatFloat(start, 'f', 3, 64),
		"-t", strconv.FormatFloat(length, 'f', 3, 64),
		"-i", source,
	}
	args = append(args, e.codecArgs()...)
	args = append(args, out)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if msg, err := cmd.CombinedOutput(); err != nil {
		os.Remove(out)
		if ctx.Err() != nil {
			return nil, models.Wrap(models.ErrExtraction, fmt.Sprintf("segment at %.2fs", start), ctx.Err())
		}
		return nil, models.Wrap(models.ErrExtraction,
			fmt.Sprintf("ffmpeg segment at %.2fs: %s", start, strings.TrimSpace(string(msg))), err)
	}

	return &Segment{
		Path:     out,
		Source:   source,
		SourceID: SourceID(source),
		Start:    start,
		Length:   length,
	}, nil
}
