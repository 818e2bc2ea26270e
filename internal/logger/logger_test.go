package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "docqa.log")

	log, err := New("prod", "debug", path)
	require.NoError(t, err)

	log.With("stage", "extract").Info("document extracted", "chars", 1500)
	log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "document extracted")
	assert.Contains(t, string(data), `"stage":"extract"`)
	assert.Contains(t, string(data), `"chars":1500`)
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docqa.log")

	log, err := New("prod", "warn", path)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("dev", "loud", "")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Debug("x")
	log.Error("y", "k", "v")
}
