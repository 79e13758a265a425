package common

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithOutput_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("warn", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("symbol", "0005.HK").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"symbol":"0005.HK"`)
}

func TestNewLoggerFromConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "divvy.log")
	logger, closer, err := NewLoggerFromConfig(LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Outputs:  []string{"file"},
		FilePath: path,
	})
	require.NoError(t, err)

	logger.Debug().Msg("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNewLoggerFromConfig_NoWriters(t *testing.T) {
	logger, closer, err := NewLoggerFromConfig(LoggingConfig{Outputs: []string{"file"}})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, closer.Close())
}
