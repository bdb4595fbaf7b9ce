package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_FileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	logger := NewLogger(false, path, true) // silence stderr

	logger.Info("session started", "port", 5173)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "session started", record["msg"])
	assert.Equal(t, float64(5173), record["port"])
}

func TestNewLogger_DebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")

	logger := NewLogger(false, path, true)
	logger.Debug("hidden")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data, "debug records suppressed at info level")

	logger = NewLogger(true, path, true)
	logger.Debug("visible")
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
}

func TestNewLogger_NoSinks(t *testing.T) {
	// Fully silenced loggers must still be safe to use.
	logger := NewLogger(false, "", true)
	require.NotNil(t, logger)
	logger.Info("goes nowhere")
}

func TestNewLogger_BadFilePath(t *testing.T) {
	logger := NewLogger(false, filepath.Join(t.TempDir(), "missing", "nested", "x.log"), true)
	require.NotNil(t, logger)
	logger.Info("still works")
}
