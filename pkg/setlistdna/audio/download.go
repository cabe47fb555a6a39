package audio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/himanishpuri/SetlistDNA/pkg/utils"
)

// YTMetadata is the subset of the yt-dlp info JSON used here.
type YTMetadata struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Track      string  `json:"track"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
	Filename   string  `json:"filename"`
}

func pickArtist(meta YTMetadata) string {
	for _, candidate := range []string{meta.Artist, meta.Channel, meta.Uploader} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return "Unknown Artist"
}

var audioExtensions = []string{".m4a", ".webm", ".opus", ".mp3", ".aac", ".ogg", ".wav"}

// DownloadAudio fetches the best audio stream of a remote recording into
// outputDir, naming it after the video id.
func DownloadAudio(ctx context.Context, sourceURL, outputDir string) (string, *YTMetadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result, err := ytdlp.New().
		Format("ba").
		NoPlaylist().
		NoWarnings().
		PrintJSON().
		Output(filepath.Join(outputDir, "%(id)s.%(ext)s")).
		Run(ctx, sourceURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		return "", nil, fmt.Errorf("yt-dlp download failed: %w (%s)", err, strings.TrimSpace(stderr))
	}

	meta, err := parseInfoJSON(result.Stdout)
	if err != nil {
		return "", nil, err
	}
	if meta.Artist == "" {
		meta.Artist = pickArtist(*meta)
	}

	if meta.Filename != "" {
		if _, err := os.Stat(meta.Filename); err == nil {
			return meta.Filename, meta, nil
		}
	}
	for _, ext := range audioExtensions {
		candidate := filepath.Join(outputDir, meta.ID+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, meta, nil
		}
	}
	return "", nil, fmt.Errorf("downloaded audio file not found for video %s (checked extensions: %v)", meta.ID, audioExtensions)
}

// parseInfoJSON returns the first info object in yt-dlp's stdout.
func parseInfoJSON(stdout string) (*YTMetadata, error) {
	sc := bufio.NewScanner(strings.NewReader(stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var meta YTMetadata
		if err := json.Unmarshal([]byte(line), &meta); err != nil {
			return nil, fmt.Errorf("failed to parse yt-dlp JSON: %w", err)
		}
		if strings.TrimSpace(meta.ID) == "" {
			return nil, fmt.Errorf("missing video ID in yt-dlp output")
		}
		return &meta, nil
	}
	return nil, fmt.Errorf("yt-dlp produced no metadata")
}
