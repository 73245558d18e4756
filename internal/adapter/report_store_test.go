package adapter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "retest.dev/pkg/retest/internal/model"
)

func sampleReport() m.RunReport {
	return m.RunReport{
		ID:          "run-1",
		Kind:        m.RunTargeted,
		Environment: "env-1",
		StartedAt:   time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Duration:    3 * time.Second,
		Targets:     []m.Path{"/proj/tests/util_test.go"},
		Results: []m.TestResult{
			{Name: "TestUtil", File: "/proj/tests/util_test.go", Status: m.Passed, Elapsed: time.Second},
			{Name: "TestBroken", Status: m.Failed, Output: "got 3, want 4"},
		},
	}
}

func TestLocalReportStore_RoundTrip(t *testing.T) {
	dir := m.Path(t.TempDir())
	store := NewLocalReportStore()

	require.NoError(t, store.SaveLatest(dir, sampleReport()))

	loaded, err := store.LoadLatest(dir)
	require.NoError(t, err)

	assert.Equal(t, sampleReport(), loaded)
}

func TestLocalReportStore_SaveReplacesPreviousSnapshot(t *testing.T) {
	dir := m.Path(t.TempDir())
	store := NewLocalReportStore()

	first := sampleReport()
	require.NoError(t, store.SaveLatest(dir, first))

	second := sampleReport()
	second.ID = "run-2"
	second.Results = nil
	require.NoError(t, store.SaveLatest(dir, second))

	loaded, err := store.LoadLatest(dir)
	require.NoError(t, err)
	assert.Equal(t, "run-2", loaded.ID)
	assert.Empty(t, loaded.Results)
}

func TestLocalReportStore_SaveCreatesTheDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does", "not", "exist")
	store := NewLocalReportStore()

	require.NoError(t, store.SaveLatest(m.Path(dir), sampleReport()))

	_, err := os.Stat(filepath.Join(dir, latestReportName))
	assert.NoError(t, err)
}

func TestLocalReportStore_LoadFailsWithoutSnapshot(t *testing.T) {
	store := NewLocalReportStore()

	_, err := store.LoadLatest(m.Path(t.TempDir()))
	assert.Error(t, err)
}

func TestLocalReportStore_LoadFailsOnGarbage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, latestReportName), []byte("{unclosed: ["), 0o600))

	store := NewLocalReportStore()

	_, err := store.LoadLatest(m.Path(dir))
	assert.Error(t, err)
}
