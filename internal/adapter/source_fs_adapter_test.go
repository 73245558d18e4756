package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "retest.dev/pkg/retest/internal/model"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("content\n"), 0o600))
}

func TestLocalSourceFSAdapter_WalkRecursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.go"))
	writeFile(t, filepath.Join(root, "sub", "nested.go"))

	fs := NewLocalSourceFSAdapter()

	var files []string

	err := fs.Walk(m.Path(root), true, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)

		if !info.IsDir() {
			files = append(files, filepath.Base(path))
		}

		return nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"top.go", "nested.go"}, files)
}

func TestLocalSourceFSAdapter_WalkNonRecursiveSkipsSubdirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.go"))
	writeFile(t, filepath.Join(root, "sub", "nested.go"))

	fs := NewLocalSourceFSAdapter()

	var files []string

	err := fs.Walk(m.Path(root), false, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)

		if !info.IsDir() {
			files = append(files, filepath.Base(path))
		}

		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"top.go"}, files)
}

func TestLocalSourceFSAdapter_FileInfo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "file.go"))

	fs := NewLocalSourceFSAdapter()

	info, err := fs.FileInfo(m.Path(filepath.Join(root, "file.go")))
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	_, err = fs.FileInfo(m.Path(filepath.Join(root, "missing.go")))
	assert.Error(t, err)
}

func TestLocalSourceFSAdapter_NormalizeResolvesSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real")
	require.NoError(t, os.MkdirAll(target, 0o750))

	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(target, link))

	fs := NewLocalSourceFSAdapter()

	normalized, err := fs.Normalize(m.Path(link))
	require.NoError(t, err)

	// The temp dir itself may sit behind a symlink, so compare against
	// the resolved target rather than the raw path.
	resolvedTarget, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)

	assert.Equal(t, m.Path(resolvedTarget), normalized)
}

func TestLocalSourceFSAdapter_NormalizeMissingPathFallsBackToCleanAbs(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "sub", "..", "just-deleted.go")

	fs := NewLocalSourceFSAdapter()

	normalized, err := fs.Normalize(m.Path(missing))
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(string(normalized)))
	assert.NotContains(t, string(normalized), "..")
}

func TestLocalSourceFSAdapter_FindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"))
	writeFile(t, filepath.Join(root, "internal", "deep", "file.go"))

	fs := NewLocalSourceFSAdapter()

	found, err := fs.FindProjectRoot(m.Path(filepath.Join(root, "internal", "deep")))
	require.NoError(t, err)
	assert.Equal(t, m.Path(root), found)

	// Starting from a file works too.
	found, err = fs.FindProjectRoot(m.Path(filepath.Join(root, "internal", "deep", "file.go")))
	require.NoError(t, err)
	assert.Equal(t, m.Path(root), found)
}

func TestLocalSourceFSAdapter_FindProjectRootFailsWithoutGoMod(t *testing.T) {
	fs := NewLocalSourceFSAdapter()

	_, err := fs.FindProjectRoot(m.Path(t.TempDir()))
	assert.Error(t, err)
}
