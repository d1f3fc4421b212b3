package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closers, err := setup(&buf, "info", "")
	require.NoError(t, err)
	assert.Empty(t, closers)

	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFileReceivesEverythingConsoleOnlyWarnings(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "featurec.log")
	logger, closers, err := setup(&buf, "debug", path)
	require.NoError(t, err)

	logger.Debug("lowering member", "member", "SayHello")
	logger.Warn("ambiguous overload")
	for _, c := range closers {
		require.NoError(t, c.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lowering member")
	assert.Contains(t, string(data), "ambiguous overload")
	assert.NotContains(t, buf.String(), "lowering member")
	assert.Contains(t, buf.String(), "ambiguous overload")
}

func TestDecisionLogger(t *testing.T) {
	var buf bytes.Buffer
	d := NewDecisions(&buf)
	d.Log("overload", "SayHello", []string{"(string)", "(string,int)"}, 1)
	d.Log("property", "Point.x", []string{"X", "Y"}, -1)
	assert.Contains(t, buf.String(), `overload SayHello: chose "(string,int)"`)
	assert.Contains(t, buf.String(), `property Point.x: chose "skip"`)

	NewDecisions(nil).Log("overload", "x", nil, 0)
}

func TestTraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := setup(&buf, "TRACE", "")
	require.NoError(t, err)
	logger.Log(context.Background(), LevelTrace, "resolving type", "type", "Point")
	assert.Contains(t, buf.String(), "level=TRACE")
	assert.Contains(t, buf.String(), "type=Point")
}
