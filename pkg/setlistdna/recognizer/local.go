package recognizer

import (
	"context"
	"fmt"

	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
)

// Matcher ranks library songs against an audio file.
type Matcher interface {
	MatchFile(ctx context.Context, path string) ([]models.MatchResult, error)
}

// Local recognizes segments against the local fingerprint library.
type Local struct {
	lib           Matcher
	minConfidence float64
	log           Logger
}

func NewLocal(lib Matcher, minConfidence float64, log Logger) *Local {
	return &Local{lib: lib, minConfidence: minConfidence, log: orNop(log)}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Recognize(ctx context.Context, seg *audio.Segment) (*models.Identity, error) {
	matches, err := l.lib.MatchFile(ctx, seg.Path)
	if err != nil {
		return nil, models.Wrap(models.ErrRecognition, fmt.Sprintf("library match at %.1fs", seg.Start), err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	best := matches[0]
	if best.Confidence < l.minConfidence {
		l.log.Debugf("segment at %.1fs: best match %s - %s at %.1f%% is below %.1f%%",
			seg.Start, best.Artist, best.Title, best.Confidence, l.minConfidence)
		return nil, nil
	}
	return &models.Identity{Artist: best.Artist, Title: best.Title}, nil
}
