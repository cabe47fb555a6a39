package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/SetlistDNA/internal/schedule"
	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
	"github.com/himanishpuri/SetlistDNA/pkg/models"
)

func TestMissingAudioArgumentIsUsageError(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	var usage *usageError
	require.True(t, errors.As(err, &usage))
	assert.Contains(t, err.Error(), "setlistdna <audio_file|url>")
}

func TestParseChunkLength(t *testing.T) {
	v, err := parseChunkLength("45")
	require.NoError(t, err)
	assert.Equal(t, 45.0, v)

	for _, bad := range []string{"abc", "0", "-10"} {
		_, err := parseChunkLength(bad)
		assert.Error(t, err, bad)
	}
}

func TestOutputPaths(t *testing.T) {
	r, tl := outputPaths("/music/set.mp3", "")
	assert.Equal(t, "/music/set_boundaries_results.json", r)
	assert.Equal(t, "/music/set_boundaries_tracklist.txt", tl)

	r, tl = outputPaths("/music/set.mp3", "/out")
	assert.Equal(t, "/out/set_boundaries_results.json", r)
	assert.Equal(t, "/out/set_boundaries_tracklist.txt", tl)
}

func TestBoundaryPreview(t *testing.T) {
	boundaries := make([]float64, 25)
	for i := range boundaries {
		boundaries[i] = float64(i * 60)
	}
	var buf bytes.Buffer
	printBoundaryPreview(&buf, boundaries)
	out := buf.String()

	assert.Contains(t, out, "25 boundaries")
	assert.Contains(t, out, "19:00")
	assert.NotContains(t, out, "20:00")
	assert.Contains(t, out, "... and 5 more")
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	p.event(schedule.Event{Start: 5, Identity: &models.Identity{Artist: "Bicep", Title: "Glue"}})
	p.event(schedule.Event{Start: 65})
	p.event(schedule.Event{Start: 125, Err: errors.New("timeout")})
	p.event(schedule.Event{Start: 3600, Skipped: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "[1] 00:05: Bicep - Glue")
	assert.Contains(t, lines[1], "no match")
	assert.Contains(t, lines[2], "timeout")
	assert.Contains(t, lines[3], "01:00:00")
}

func TestCorrectionsTable(t *testing.T) {
	out := correctionsTable([]smoothing.Correction{{
		Timestamp:   45,
		Original:    models.Identity{Artist: "Y", Title: "Track Y"},
		CorrectedTo: models.Identity{Artist: "X", Title: "Track X"},
		Duration:    50,
	}})
	assert.Contains(t, out, "00:45")
	assert.Contains(t, out, "Y - Track Y")
	assert.Contains(t, out, "X - Track X")
	assert.Contains(t, out, "50s")
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf("[paths]\ndb_path = %q\ntemp_dir = %q\ndownload_dir = %q\n",
		filepath.Join(dir, "db", "lib.sqlite3"), filepath.Join(dir, "tmp"), filepath.Join(dir, "dl"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const savedResults = `{
  "boundaries": [0, 40, 90],
  "chunk_length": 60,
  "results": [
    {"timestamp": 5, "timestamp_formatted": "00:05", "artist": "X", "title": "Track X", "confidence": "high"},
    {"timestamp": 45, "timestamp_formatted": "00:45", "artist": "Y", "title": "Track Y", "confidence": "high"},
    {"timestamp": 95, "timestamp_formatted": "01:35", "artist": "X", "title": "Track X", "confidence": "high"}
  ]
}`

func runReplay(t *testing.T, extra ...string) string {
	t.Helper()
	results := filepath.Join(t.TempDir(), "set_boundaries_results.json")
	require.NoError(t, os.WriteFile(results, []byte(savedResults), 0o644))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"replay", results, "--config", writeTestConfig(t), "--log-level", "error"}, extra...))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestReplayCommand(t *testing.T) {
	out := runReplay(t)
	assert.Contains(t, out, "00:05 X - Track X")
	assert.NotContains(t, out, "00:45 Y - Track Y")
	assert.Contains(t, out, "3 before smoothing, 1 after")

	out = runReplay(t, "--strategy", "none")
	assert.Contains(t, out, "00:45 Y - Track Y")
	assert.Contains(t, out, "01:35 X - Track X")
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--path", target})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[smoothing]")

	cmd = newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--path", target})
	assert.Error(t, cmd.Execute())
}
