// Package recognizer holds the adapters that name the track playing in a
// segment: an external command (Shazam-style JSON), the local fingerprint
// library, and a caching decorator.
package recognizer

import (
	"context"

	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
)

// Recognizer identifies a segment. A nil identity with a nil error is a
// clean no-match; errors are provider faults.
type Recognizer interface {
	Recognize(ctx context.Context, seg *audio.Segment) (*models.Identity, error)
	Name() string
}

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
