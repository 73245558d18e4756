package controller

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFile(t *testing.T) *os.File {
	t.Helper()

	file, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })

	return file
}

func TestNewUI_Simple(t *testing.T) {
	ui, err := NewUI(ReporterSimple, tempFile(t))
	require.NoError(t, err)

	assert.IsType(t, &SimpleUI{}, ui)
}

func TestNewUI_TUI(t *testing.T) {
	ui, err := NewUI(ReporterTUI, tempFile(t))
	require.NoError(t, err)

	tui, ok := ui.(*TUI)
	require.True(t, ok)
	require.NoError(t, tui.failures.Close())
}

func TestNewUI_AutoFallsBackToSimpleWithoutTerminal(t *testing.T) {
	file := tempFile(t)
	require.False(t, IsTTY(file))

	ui, err := NewUI(ReporterAuto, file)
	require.NoError(t, err)

	assert.IsType(t, &SimpleUI{}, ui)
}

func TestNewUI_RejectsUnknownKind(t *testing.T) {
	_, err := NewUI("fancy", tempFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fancy")
}
