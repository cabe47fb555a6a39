package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel, format string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	cfg.Colorize = false
	cfg.ShowTime = false
	cfg.Level = level
	cfg.Format = format
	return New(cfg), &buf
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newBufferLogger(WARN, FormatConsole)

	log.Infof("hidden %d", 1)
	log.Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
}

func TestJSONFormatCarriesFields(t *testing.T) {
	log, buf := newBufferLogger(DEBUG, FormatJSON)

	log.With("component", "scheduler").Debugf("boundary %d", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "scheduler", line["component"])
	assert.Equal(t, "boundary 3", line["message"])
}

func TestSetLevel(t *testing.T) {
	log, buf := newBufferLogger(ERROR, FormatConsole)
	log.Warn("first")
	log.SetLevel(DEBUG)
	log.Debug("second")

	assert.NotContains(t, buf.String(), "first")
	assert.Contains(t, buf.String(), "second")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", DEBUG, true},
		{"Warning", WARN, true},
		{" error ", ERROR, true},
		{"verbose", INFO, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
