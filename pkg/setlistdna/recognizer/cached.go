package recognizer

import (
	"context"

	"github.com/himanishpuri/SetlistDNA/internal/storage"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
)

// Store persists recognizer outcomes.
type Store interface {
	GetRecognition(key string) (*storage.Recognition, bool, error)
	PutRecognition(rec *storage.Recognition) error
}

// Cached remembers outcomes of the wrapped recognizer, no-matches included.
// Provider faults are not remembered.
type Cached struct {
	inner Recognizer
	store Store
	log   Logger
}

func NewCached(inner Recognizer, store Store, log Logger) *Cached {
	return &Cached{inner: inner, store: store, log: orNop(log)}
}

func (c *Cached) Name() string { return c.inner.Name() }

// Lookup returns the cached outcome of a window without touching audio.
// hit is false on a miss or a store error.
func (c *Cached) Lookup(sourceID string, start, length float64) (id *models.Identity, hit bool) {
	rec, found, err := c.store.GetRecognition(storage.RecognitionKey(sourceID, c.Name(), start, length))
	if err != nil {
		c.log.Warnf("recognition cache lookup failed: %v", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	if !rec.Matched {
		return nil, true
	}
	return &models.Identity{Artist: rec.Artist, Title: rec.Title}, true
}

func (c *Cached) Recognize(ctx context.Context, seg *audio.Segment) (*models.Identity, error) {
	if seg.SourceID != "" {
		if id, hit := c.Lookup(seg.SourceID, seg.Start, seg.Length); hit {
			return id, nil
		}
	}

	id, err := c.inner.Recognize(ctx, seg)
	if err != nil || seg.SourceID == "" {
		return id, err
	}

	rec := &storage.Recognition{
		SourceID: seg.SourceID,
		Provider: c.Name(),
		Start:    seg.Start,
		Length:   seg.Length,
	}
	if id != nil {
		rec.Matched, rec.Artist, rec.Title = true, id.Artist, id.Title
	}
	if err := c.store.PutRecognition(rec); err != nil {
		c.log.Warnf("recognition cache write failed: %v", err)
	}
	return id, nil
}
