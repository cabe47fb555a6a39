package recognizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/SetlistDNA/internal/storage"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      *models.Identity
		malformed bool
	}{
		{"shazam", `{"track": {"title": "Strobe", "subtitle": "deadmau5"}}`, &models.Identity{Artist: "deadmau5", Title: "Strobe"}, false},
		{"flat", `{"artist": "Bicep", "title": "Glue"}`, &models.Identity{Artist: "Bicep", Title: "Glue"}, false},
		{"no track", `{"matches": [], "timestamp": 1}`, nil, false},
		{"empty", "  \n", nil, false},
		{"null", "null", nil, false},
		{"missing artist", `{"track": {"title": "Glue"}}`, &models.Identity{Artist: models.PlaceholderName, Title: "Glue"}, true},
		{"blank title", `{"artist": "Bicep", "title": "  "}`, &models.Identity{Artist: "Bicep", Title: models.PlaceholderName}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResult([]byte(tt.in))
			if tt.malformed {
				assert.ErrorIs(t, err, models.ErrMalformedResult)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseResultRejectsGarbage(t *testing.T) {
	_, err := ParseResult([]byte("Recognition failed"))
	assert.ErrorIs(t, err, models.ErrRecognition)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recognize.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func segmentWith(t *testing.T, content string) *audio.Segment {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segment.mp3")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &audio.Segment{Path: path, SourceID: "src", Start: 5, Length: 60}
}

func TestNewCommandNeedsPlaceholder(t *testing.T) {
	_, err := NewCommand("songrec recognize", time.Second, nil)
	assert.Error(t, err)

	c, err := NewCommand("", time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, "songrec", c.Name())
	assert.Equal(t, []string{"audio-file-to-recognized-song", "/tmp/a.mp3"}, c.args("/tmp/a.mp3"))
}

func TestCommandRecognize(t *testing.T) {
	script := writeScript(t, `cat "$1"`)
	c, err := NewCommand(script+" {file}", 5*time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, "recognize.sh", c.Name())

	id, err := c.Recognize(context.Background(), segmentWith(t, `{"track": {"title": "Glue", "subtitle": "Bicep"}}`))
	require.NoError(t, err)
	assert.Equal(t, &models.Identity{Artist: "Bicep", Title: "Glue"}, id)

	id, err = c.Recognize(context.Background(), segmentWith(t, `{"track": {"subtitle": "Bicep"}}`))
	require.NoError(t, err)
	assert.Equal(t, models.PlaceholderName, id.Title)

	id, err = c.Recognize(context.Background(), segmentWith(t, `{}`))
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestCommandFailures(t *testing.T) {
	t.Run("exit status", func(t *testing.T) {
		c, err := NewCommand(writeScript(t, "echo boom >&2; exit 3")+" {file}", 5*time.Second, nil)
		require.NoError(t, err)
		_, err = c.Recognize(context.Background(), segmentWith(t, ""))
		assert.ErrorIs(t, err, models.ErrRecognition)
		assert.Contains(t, err.Error(), "boom")
	})
	t.Run("timeout", func(t *testing.T) {
		c, err := NewCommand(writeScript(t, "sleep 5")+" {file}", 100*time.Millisecond, nil)
		require.NoError(t, err)
		_, err = c.Recognize(context.Background(), segmentWith(t, ""))
		assert.ErrorIs(t, err, models.ErrRecognition)
	})
}

type fakeMatcher struct {
	results []models.MatchResult
	err     error
}

func (f fakeMatcher) MatchFile(context.Context, string) ([]models.MatchResult, error) {
	return f.results, f.err
}

func TestLocal(t *testing.T) {
	seg := &audio.Segment{Path: "x.wav", Start: 5}
	ctx := context.Background()

	strong := fakeMatcher{results: []models.MatchResult{{Artist: "Bicep", Title: "Glue", Confidence: 88}}}
	id, err := NewLocal(strong, 30, nil).Recognize(ctx, seg)
	require.NoError(t, err)
	assert.Equal(t, &models.Identity{Artist: "Bicep", Title: "Glue"}, id)

	weak := fakeMatcher{results: []models.MatchResult{{Artist: "Bicep", Title: "Glue", Confidence: 12}}}
	id, err = NewLocal(weak, 30, nil).Recognize(ctx, seg)
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = NewLocal(fakeMatcher{}, 30, nil).Recognize(ctx, seg)
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = NewLocal(fakeMatcher{err: errors.New("disk")}, 30, nil).Recognize(ctx, seg)
	assert.ErrorIs(t, err, models.ErrRecognition)
	assert.Equal(t, "local", NewLocal(nil, 0, nil).Name())
}

type memStore struct {
	recs map[string]storage.Recognition
}

func (m *memStore) GetRecognition(key string) (*storage.Recognition, bool, error) {
	rec, ok := m.recs[key]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (m *memStore) PutRecognition(rec *storage.Recognition) error {
	rec.Key = storage.RecognitionKey(rec.SourceID, rec.Provider, rec.Start, rec.Length)
	m.recs[rec.Key] = *rec
	return nil
}

type countingRecognizer struct {
	calls int
	ids   map[float64]*models.Identity
	err   error
}

func (c *countingRecognizer) Name() string { return "counting" }

func (c *countingRecognizer) Recognize(_ context.Context, seg *audio.Segment) (*models.Identity, error) {
	c.calls++
	return c.ids[seg.Start], c.err
}

func TestCachedRemembersOutcomes(t *testing.T) {
	inner := &countingRecognizer{ids: map[float64]*models.Identity{5: {Artist: "Bicep", Title: "Glue"}}}
	store := &memStore{recs: map[string]storage.Recognition{}}
	c := NewCached(inner, store, nil)
	ctx := context.Background()

	hitSeg := &audio.Segment{SourceID: "src", Start: 5, Length: 60}
	missSeg := &audio.Segment{SourceID: "src", Start: 65, Length: 60}

	for range 2 {
		id, err := c.Recognize(ctx, hitSeg)
		require.NoError(t, err)
		assert.Equal(t, "Glue", id.Title)

		id, err = c.Recognize(ctx, missSeg)
		require.NoError(t, err)
		assert.Nil(t, id)
	}
	assert.Equal(t, 2, inner.calls)

	id, hit := c.Lookup("src", 5, 60)
	assert.True(t, hit)
	assert.Equal(t, "Bicep", id.Artist)

	id, hit = c.Lookup("src", 65, 60)
	assert.True(t, hit)
	assert.Nil(t, id)

	_, hit = c.Lookup("other", 5, 60)
	assert.False(t, hit)
}

func TestCachedSkipsFailures(t *testing.T) {
	inner := &countingRecognizer{err: models.ErrRecognition}
	store := &memStore{recs: map[string]storage.Recognition{}}
	c := NewCached(inner, store, nil)

	seg := &audio.Segment{SourceID: "src", Start: 5, Length: 60}
	_, err := c.Recognize(context.Background(), seg)
	assert.ErrorIs(t, err, models.ErrRecognition)
	assert.Empty(t, store.recs)
	assert.Equal(t, "counting", c.Name())
}
