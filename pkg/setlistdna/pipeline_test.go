package setlistdna

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
	"github.com/himanishpuri/SetlistDNA/internal/tracklist"
	"github.com/himanishpuri/SetlistDNA/pkg/logger"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
	"github.com/himanishpuri/SetlistDNA/pkg/setlistdna/audio"
)

type fakeDetector struct {
	candidates [][]float64
	duration   float64
	err        error
}

func (f fakeDetector) Detect(context.Context, string) ([][]float64, float64, error) {
	return f.candidates, f.duration, f.err
}

type fakeExtractor struct {
	mu    sync.Mutex
	calls []float64
	fail  map[float64]bool
}

func (f *fakeExtractor) Extract(_ context.Context, source string, start, length float64) (*audio.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, start)
	if f.fail[start] {
		return nil, models.Wrap(models.ErrExtraction, "ffmpeg exploded", nil)
	}
	return &audio.Segment{Source: source, Start: start, Length: length}, nil
}

type fakeRecognizer struct {
	byStart map[float64]*models.Identity
	cached  map[float64]*models.Identity
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Recognize(_ context.Context, seg *audio.Segment) (*models.Identity, error) {
	id, ok := f.byStart[seg.Start]
	if !ok {
		return nil, errors.New("provider down")
	}
	return id, nil
}

type cachingRecognizer struct {
	fakeRecognizer
}

func (c *cachingRecognizer) Lookup(_ string, start, _ float64) (*models.Identity, bool) {
	id, ok := c.cached[start]
	return id, ok
}

var (
	trackX = &models.Identity{Artist: "Artist X", Title: "Track X"}
	trackY = &models.Identity{Artist: "Artist Y", Title: "Track Y"}
)

func newTestPipeline(t *testing.T, ext SegmentExtractor, rec Recognizer, opts ...Option) *Pipeline {
	t.Helper()
	base := []Option{
		WithLogger(logger.Discard()),
		WithTempDir(t.TempDir()),
		WithDelay(0),
		WithExtractor(ext),
		WithRecognizer(rec),
		WithDetector(fakeDetector{err: errors.New("unused")}),
	}
	p, err := NewPipeline(append(base, opts...)...)
	require.NoError(t, err)
	return p
}

func xyx() *fakeRecognizer {
	return &fakeRecognizer{byStart: map[float64]*models.Identity{5: trackX, 45: trackY, 95: trackX}}
}

func TestProcessCandidatesEndToEnd(t *testing.T) {
	ext := &fakeExtractor{}
	p := newTestPipeline(t, ext, xyx())

	report, err := p.ProcessCandidates(context.Background(), "set.mp3", [][]float64{{0, 40, 90}}, 200)
	require.NoError(t, err)

	require.Len(t, report.Raw, 3)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, "Track X", report.Entries[0].Title)
	assert.Equal(t, "00:05", tracklist.FormatTimestamp(report.Entries[0].Timestamp))
	require.Len(t, report.Corrections, 1)
	assert.Equal(t, *trackY, report.Corrections[0].Original)
	assert.Equal(t, 1.0, report.Stats.RecognitionRate)
	assert.Equal(t, 3, report.Stats.UniqueBeforeSmooth)
	assert.Equal(t, "fake", report.Provider)
	assert.ElementsMatch(t, []float64{5, 45, 95}, ext.calls)
}

func TestProcessCandidatesReconcilesAllLists(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{}, xyx())

	report, err := p.ProcessCandidates(context.Background(), "set.mp3",
		[][]float64{{0, 20, 90}, {40, 41}}, 200)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 40, 90}, report.Boundaries)
}

func TestExtractionFailureSkipsBoundary(t *testing.T) {
	ext := &fakeExtractor{fail: map[float64]bool{45: true}}
	p := newTestPipeline(t, ext, xyx(), WithSmoothing(smoothing.Options{
		Strategy: smoothing.StrategyNone, WindowSize: 5,
	}))

	report, err := p.ProcessCandidates(context.Background(), "set.mp3", [][]float64{{0, 40, 90}}, 200)
	require.NoError(t, err)
	assert.Len(t, report.Raw, 2)
	assert.Len(t, report.Entries, 1)
	assert.InDelta(t, 2.0/3.0, report.Stats.RecognitionRate, 1e-9)
}

func TestRecognizerFailuresYieldEmptyTracklist(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{}, &fakeRecognizer{})

	report, err := p.ProcessCandidates(context.Background(), "set.mp3", [][]float64{{0, 40, 90}}, 200)
	require.NoError(t, err)
	assert.Empty(t, report.Raw)
	assert.Empty(t, report.Entries)
	assert.Equal(t, 3, report.Stats.BoundariesAttempted)
	assert.True(t, report.Stats.RateDefined)
	assert.Zero(t, report.Stats.RecognitionRate)
}

func TestCachedWindowsSkipExtraction(t *testing.T) {
	rec := &cachingRecognizer{fakeRecognizer{
		byStart: map[float64]*models.Identity{95: trackX},
		cached:  map[float64]*models.Identity{5: trackX, 45: nil},
	}}
	ext := &fakeExtractor{}
	p := newTestPipeline(t, ext, rec)

	report, err := p.ProcessCandidates(context.Background(), "set.mp3", [][]float64{{0, 40, 90}}, 200)
	require.NoError(t, err)
	assert.Equal(t, []float64{95}, ext.calls)
	assert.Len(t, report.Raw, 2)
}

func TestValidationFailures(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{}, xyx())
	ctx := context.Background()

	report, err := p.ProcessCandidates(ctx, "set.mp3", [][]float64{{0, 40}}, 0)
	assert.ErrorIs(t, err, models.ErrInputValidation)
	reason, _ := models.ReasonOf(err)
	assert.Equal(t, models.ReasonZeroDuration, reason)
	assert.Equal(t, models.ReasonZeroDuration, report.Reason)
	assert.Empty(t, report.Entries)

	report, err = p.ProcessCandidates(ctx, "set.mp3", [][]float64{{}, nil}, 100)
	reason, _ = models.ReasonOf(err)
	assert.Equal(t, models.ReasonNoBoundaries, reason)
	assert.False(t, report.Stats.RateDefined)

	report, err = p.Process(ctx, filepath.Join(t.TempDir(), "missing.mp3"))
	reason, _ = models.ReasonOf(err)
	assert.Equal(t, models.ReasonMissingSource, reason)
	assert.Equal(t, models.ReasonMissingSource, report.Reason)
}

func TestProcessUsesDetector(t *testing.T) {
	src := filepath.Join(t.TempDir(), "set.mp3")
	require.NoError(t, os.WriteFile(src, []byte("audio"), 0o644))

	p := newTestPipeline(t, &fakeExtractor{}, xyx(),
		WithDetector(fakeDetector{candidates: [][]float64{{0, 40, 90}}, duration: 200}))
	report, err := p.Process(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, report.Entries, 1)
	assert.Equal(t, src, report.Source)

	p = newTestPipeline(t, &fakeExtractor{}, xyx(),
		WithDetector(fakeDetector{err: errors.New("ffmpeg missing")}))
	_, err = p.Process(context.Background(), src)
	assert.ErrorContains(t, err, "ffmpeg missing")
}

func TestCancelledRunReturnsPartialReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, &fakeExtractor{}, xyx())
	report, err := p.ProcessCandidates(ctx, "set.mp3", [][]float64{{0, 40, 90}}, 200)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.True(t, report.Partial)
}

func TestNewPipelineRejectsBadParameters(t *testing.T) {
	_, err := NewPipeline(WithLogger(logger.Discard()), WithChunkLength(-1))
	reason, ok := models.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonInvalidParameter, reason)

	_, err = NewPipeline(WithLogger(logger.Discard()), WithMinSeparation(-5))
	assert.ErrorIs(t, err, models.ErrInputValidation)
}

func TestReplay(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{}, xyx())
	report, err := p.ProcessCandidates(context.Background(), "set.mp3", [][]float64{{0, 40, 90}}, 200)
	require.NoError(t, err)
	rec := report.Record()

	raw, err := Replay(rec, smoothing.Options{Strategy: smoothing.StrategyNone, WindowSize: 5}, "fake")
	require.NoError(t, err)
	assert.Len(t, raw.Entries, 3)
	assert.Equal(t, smoothing.StrategyNone, raw.Strategy)

	smoothed, err := Replay(rec, smoothing.DefaultOptions(), "fake")
	require.NoError(t, err)
	assert.Len(t, smoothed.Entries, 1)
	assert.Equal(t, 3, smoothed.Stats.UniqueBeforeSmooth)

	_, err = Replay(rec, smoothing.Options{Strategy: "vote", WindowSize: 5}, "")
	assert.ErrorIs(t, err, models.ErrInputValidation)
	_, err = Replay(nil, smoothing.DefaultOptions(), "")
	assert.Error(t, err)
}
