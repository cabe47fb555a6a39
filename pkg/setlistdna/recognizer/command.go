package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
)

const (
	DefaultCommand  = "songrec audio-file-to-recognized-song {file}"
	filePlaceholder = "{file}"
)

// Command runs an external recognizer per segment and parses its JSON
// output.
type Command struct {
	argv    []string
	timeout time.Duration
	log     Logger
}

// NewCommand builds a recognizer from a whitespace-separated template in
// which {file} stands for the segment path.
func NewCommand(template string, timeout time.Duration, log Logger) (*Command, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultCommand
	}
	argv := strings.Fields(template)
	if !strings.Contains(template, filePlaceholder) {
		return nil, fmt.Errorf("recognizer command %q lacks the %s placeholder", template, filePlaceholder)
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Command{argv: argv, timeout: timeout, log: orNop(log)}, nil
}

// Name is the executable's base name, e.g. "songrec".
func (c *Command) Name() string {
	return filepath.Base(c.argv[0])
}

func (c *Command) args(file string) []string {
	out := make([]string, len(c.argv)-1)
	for i, a := range c.argv[1:] {
		out[i] = strings.ReplaceAll(a, filePlaceholder, file)
	}
	return out
}

func (c *Command) Recognize(ctx context.Context, seg *audio.Segment) (*models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.argv[0], c.args(seg.Path)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, models.Wrap(models.ErrRecognition, c.Name()+" timed out", ctx.Err())
		}
		return nil, models.Wrap(models.ErrRecognition,
			fmt.Sprintf("%s: %s", c.Name(), strings.TrimSpace(stderr.String())), err)
	}

	id, err := ParseResult(stdout.Bytes())
	if errors.Is(err, models.ErrMalformedResult) {
		c.log.Warnf("segment at %.1fs: %v", seg.Start, err)
		return id, nil
	}
	return id, err
}

type shazamResult struct {
	Track *struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
	} `json:"track"`
	Artist *string `json:"artist"`
	Title  *string `json:"title"`
}

// ParseResult reads Shazam-style output ({"track": {"title", "subtitle"}})
// or a flat {"artist", "title"} object. No track means no match. Missing
// fields are replaced by the placeholder and reported as ErrMalformedResult
// alongside the usable identity.
func ParseResult(out []byte) (*models.Identity, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 || bytes.Equal(out, []byte("null")) {
		return nil, nil
	}

	var res shazamResult
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, models.Wrap(models.ErrRecognition, "decoding recognizer output", err)
	}

	var id models.Identity
	switch {
	case res.Track != nil:
		id = models.Identity{Artist: res.Track.Subtitle, Title: res.Track.Title}
	case res.Artist != nil || res.Title != nil:
		if res.Artist != nil {
			id.Artist = *res.Artist
		}
		if res.Title != nil {
			id.Title = *res.Title
		}
	default:
		return nil, nil
	}

	id.Artist, id.Title = strings.TrimSpace(id.Artist), strings.TrimSpace(id.Title)
	norm, ok := id.Normalized()
	if !ok {
		return &norm, models.Wrap(models.ErrMalformedResult, fmt.Sprintf("substituted %q", norm.String()), nil)
	}
	return &norm, nil
}
