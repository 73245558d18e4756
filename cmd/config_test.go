package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "retest", configBaseName)
	assert.Equal(t, "retest.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "reporter", reporterFlagName)
	assert.Equal(t, "exclude", excludeFlagName)
	assert.Equal(t, "paths.exclude", excludeConfigKey)
	assert.Equal(t, "paths.tests", testsDirConfigKey)
	assert.Equal(t, "watch.debounce_ms", debounceConfigKey)
	assert.Equal(t, ".retest-reports", defaultReportsDir)
	assert.Equal(t, "auto", defaultReporter)
	assert.Equal(t, "tests", defaultTestsDir)
	assert.Equal(t, 500, defaultDebounceMS)
	assert.Equal(t, "RETEST", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"  info  ", slog.LevelInfo},
		{"-4", slog.LevelDebug},
		{"8", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelInfo))
		})
	}
}

func TestConfigureLogger_WritesToTheConfiguredFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	configureLogger(logPath, false)

	slog.Info("probe entry")

	info, err := os.Stat(logPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestConfigureLogger_VerboseEnablesDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "verbose.log")

	configureLogger(logPath, true)

	assert.True(t, globalLogger.Enabled(t.Context(), slog.LevelDebug))
}
