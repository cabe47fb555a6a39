package smoothing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/SetlistDNA/pkg/models"
)

// seq builds results from "artist@timestamp" pairs; title mirrors the artist.
func seq(entries ...any) []models.IdentificationResult {
	out := make([]models.IdentificationResult, 0, len(entries)/2)
	for i := 0; i+1 < len(entries); i += 2 {
		name := entries[i].(string)
		out = append(out, models.IdentificationResult{
			Timestamp:  float64(entries[i+1].(int)),
			Artist:     name,
			Title:      name + " title",
			Confidence: models.ConfidenceHigh,
		})
	}
	return out
}

func artists(results []models.IdentificationResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Artist
	}
	return out
}

func TestMajorityVoteReplacesIsolatedShortEntry(t *testing.T) {
	in := seq("A", 0, "A", 150, "B", 300, "A", 330, "A", 480)

	out, corrections := MajorityVote(in, DefaultOptions())

	assert.Equal(t, []string{"A", "A", "A", "A", "A"}, artists(out))
	require.Len(t, corrections, 1)
	assert.Equal(t, 2, corrections[0].Index)
	assert.Equal(t, "B", corrections[0].Original.Artist)
	assert.Equal(t, "A", corrections[0].CorrectedTo.Artist)
	assert.InDelta(t, 30.0, corrections[0].Duration, 1e-9)
	assert.Equal(t, "smoothed from B - B title", out[2].Note)
	assert.Equal(t, 300.0, out[2].Timestamp)

	// input untouched
	assert.Equal(t, "B", in[2].Artist)
}

func TestMajorityVoteLeavesDistinctSequence(t *testing.T) {
	in := seq("A", 0, "B", 30, "C", 60, "D", 90, "E", 120)

	out, corrections := MajorityVote(in, DefaultOptions())

	assert.Equal(t, in, out)
	assert.Empty(t, corrections)
}

func TestMajorityVoteKeepsLongEntry(t *testing.T) {
	in := seq("A", 0, "A", 100, "B", 200, "A", 400, "A", 500)

	out, _ := MajorityVote(in, DefaultOptions())

	assert.Equal(t, "B", out[2].Artist)
}

func TestMajorityVoteShortSequenceUnchanged(t *testing.T) {
	in := seq("A", 0, "B", 10)
	out, corrections := MajorityVote(in, DefaultOptions())
	assert.Equal(t, in, out)
	assert.Nil(t, corrections)
}

func TestMajorityVoteTransitionScenario(t *testing.T) {
	in := seq("X", 5, "Y", 45, "X", 95)

	out, corrections := MajorityVote(in, DefaultOptions())

	assert.Equal(t, []string{"X", "X", "X"}, artists(out))
	require.Len(t, corrections, 1)
	assert.Equal(t, 1, corrections[0].Index)
	assert.InDelta(t, 50.0, corrections[0].Duration, 1e-9)
}

func TestMajorityVoteIsCaseInsensitive(t *testing.T) {
	in := seq("A", 0, "A", 150, "B", 300, "A", 330, "A", 480)
	in[0].Artist, in[0].Title = "a", "A TITLE"

	out, corrections := MajorityVote(in, DefaultOptions())

	require.Len(t, corrections, 1)
	// donor is the first window member of the majority identity
	assert.Equal(t, "a", out[2].Artist)
	assert.Equal(t, "A TITLE", out[2].Title)
}

func TestMajorityVoteBelowThreshold(t *testing.T) {
	// window of B at index 2: A, A, C, D -> A holds 2/4 = 50% < 60%
	in := seq("A", 0, "A", 150, "B", 300, "C", 330, "D", 480)

	out, corrections := MajorityVote(in, DefaultOptions())

	assert.Equal(t, "B", out[2].Artist)
	assert.Empty(t, corrections)
}

func TestMajorityVoteIdempotent(t *testing.T) {
	in := seq("A", 0, "A", 150, "B", 300, "A", 330, "A", 480, "C", 700, "C", 900)

	once, _ := MajorityVote(in, DefaultOptions())
	twice, corrections := MajorityVote(once, DefaultOptions())

	assert.Equal(t, once, twice)
	assert.Empty(t, corrections)
}

func TestSurround(t *testing.T) {
	tests := []struct {
		name string
		in   []models.IdentificationResult
		want []string
	}{
		{"replaces sandwiched entry", seq("A", 0, "B", 100, "A", 150), []string{"A", "A", "A"}},
		{"keeps long entry", seq("A", 0, "B", 100, "A", 300), []string{"A", "B", "A"}},
		{"neighbours disagree", seq("A", 0, "B", 100, "C", 150), []string{"A", "B", "C"}},
		{"reads original neighbours", seq("B", 0, "A", 10, "B", 20, "A", 30), []string{"B", "B", "A", "A"}},
		{"too short", seq("A", 0, "B", 1), []string{"A", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := Surround(tt.in, DefaultMinTrackDuration)
			assert.Equal(t, tt.want, artists(out))
		})
	}
}

func TestStrategiesCanDisagree(t *testing.T) {
	// B at index 2 has A and C as direct neighbours, so surround keeps it,
	// but the five-wide window holds three A out of four.
	in := seq("A", 0, "A", 100, "B", 200, "C", 210, "A", 220)

	majority, _ := Smooth(in, DefaultOptions())
	surround, _ := Smooth(in, Options{Strategy: StrategySurround, MinTrackDuration: DefaultMinTrackDuration})

	assert.Equal(t, "A", majority[2].Artist)
	assert.Equal(t, "B", surround[2].Artist)
}

func TestSmoothNoneClones(t *testing.T) {
	in := seq("A", 0, "B", 10, "A", 20)
	out, corrections := Smooth(in, Options{Strategy: StrategyNone})
	assert.Equal(t, in, out)
	assert.Nil(t, corrections)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	bad := DefaultOptions()
	bad.WindowSize = 0
	err := bad.Validate()
	require.Error(t, err)
	reason, ok := models.ReasonOf(err)
	assert.True(t, ok)
	assert.Equal(t, models.ReasonInvalidParameter, reason)

	bad = DefaultOptions()
	bad.Strategy = "median"
	assert.Error(t, bad.Validate())
}

func TestDurationsUseWholeSeconds(t *testing.T) {
	fractional := seq("X", 5, "Y", 45, "X", 165)
	for i, ts := range []float64{5.4, 45.9, 165.2} {
		fractional[i].Timestamp = ts
	}
	whole := seq("X", 5, "Y", 45, "X", 165)

	for _, strategy := range []Strategy{StrategyMajority, StrategySurround} {
		opts := DefaultOptions()
		opts.Strategy = strategy

		live, liveCorr := Smooth(fractional, opts)
		replayed, replayCorr := Smooth(whole, opts)

		assert.Equal(t, artists(replayed), artists(live), strategy)
		assert.Len(t, liveCorr, len(replayCorr), strategy)
		assert.Equal(t, []string{"X", "Y", "X"}, artists(live), strategy)
	}
}
