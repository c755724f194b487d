package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"tourdesk/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesTaggedJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer, err := New(
		config.LoggingConfig{Level: "debug", Output: "file", FilePath: path},
		config.AppConfig{Name: "tourdesk", Environment: "test", Version: "1.0.0"},
	)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info().Str("k", "v").Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "tourdesk", line["app"])
	assert.Equal(t, "test", line["env"])
	assert.Equal(t, "1.0.0", line["version"])
	assert.Equal(t, "hello", line["message"])
}

func TestNewRejectsBadOutput(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, config.AppConfig{})
	assert.ErrorContains(t, err, "file_path")

	_, _, err = New(config.LoggingConfig{Output: "syslog"}, config.AppConfig{})
	assert.ErrorContains(t, err, "unknown logging output")
}

func TestNewDefaultsLevelToInfo(t *testing.T) {
	for _, level := range []string{"", "nonsense"} {
		logger, closer, err := New(config.LoggingConfig{Level: level}, config.AppConfig{})
		require.NoError(t, err, "level %q", level)
		require.Nil(t, closer)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel(), "level %q", level)
	}
}
