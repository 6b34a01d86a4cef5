package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOptions_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOptions(Options{Level: slog.LevelInfo, JSON: true, Writer: &buf})
	logger.Error("boom", "error", errors.New("bad"))
	assert.Contains(t, buf.String(), `"err":"bad"`)
	assert.NotContains(t, buf.String(), `"error"`)
}

func TestNewWithOptions_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOptions(Options{Level: slog.LevelWarn, Writer: &buf})
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
