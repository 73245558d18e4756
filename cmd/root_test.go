package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "retest.dev/pkg/retest/internal/model"
)

func chdir(t *testing.T, dir string) {
	t.Helper()

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(originalWD)) })
}

func normalized(t *testing.T, path string) m.Path {
	t.Helper()

	result, err := fsAdapter.Normalize(m.Path(path))
	require.NoError(t, err)

	return result
}

func TestResolveRoots_PositionalArguments(t *testing.T) {
	codeDir := t.TempDir()
	testDir := t.TempDir()

	code, tests, err := resolveRoots([]string{codeDir, testDir}, false)
	require.NoError(t, err)

	assert.Equal(t, normalized(t, codeDir), code)
	assert.Equal(t, normalized(t, testDir), tests)
}

func TestResolveRoots_WrongArgumentCount(t *testing.T) {
	_, _, err := resolveRoots([]string{t.TempDir()}, false)
	assert.Error(t, err)

	_, _, err = resolveRoots(nil, false)
	assert.Error(t, err)
}

func TestResolveRoots_PackageModeRejectsPositionalArguments(t *testing.T) {
	_, _, err := resolveRoots([]string{t.TempDir(), t.TempDir()}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestResolveRoots_RejectsFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, _, err := resolveRoots([]string{file, dir}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestResolveRoots_RejectsMissingDirectories(t *testing.T) {
	_, _, err := resolveRoots([]string{filepath.Join(t.TempDir(), "ghost"), t.TempDir()}, false)
	assert.Error(t, err)
}

func TestResolveRoots_PackageMode(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "go.mod"), []byte("module example.com/proj\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(project, "tests"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(project, "internal", "deep"), 0o750))

	chdir(t, filepath.Join(project, "internal", "deep"))

	code, tests, err := resolveRoots(nil, true)
	require.NoError(t, err)

	assert.Equal(t, normalized(t, project), code)
	assert.Equal(t, normalized(t, filepath.Join(project, "tests")), tests)
}

func TestResolveRoots_PackageModeFailsWithoutGoMod(t *testing.T) {
	chdir(t, t.TempDir())

	_, _, err := resolveRoots(nil, true)
	assert.Error(t, err)
}

func TestResolveRoots_PackageModeFailsWithoutTestsDir(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "go.mod"), []byte("module example.com/proj\n"), 0o600))

	chdir(t, project)

	_, _, err := resolveRoots(nil, true)
	assert.Error(t, err)
}

func TestCompileExcludes(t *testing.T) {
	original := viper.GetStringSlice(excludeConfigKey)
	t.Cleanup(func() { viper.Set(excludeConfigKey, original) })

	viper.Set(excludeConfigKey, []string{`\.swp$`, `/\.git/`})

	compiled, err := compileExcludes()
	require.NoError(t, err)
	require.Len(t, compiled, 2)

	assert.True(t, compiled[0].MatchString("/proj/edit.swp"))
	assert.False(t, compiled[0].MatchString("/proj/edit.go"))
}

func TestCompileExcludes_InvalidPattern(t *testing.T) {
	original := viper.GetStringSlice(excludeConfigKey)
	t.Cleanup(func() { viper.Set(excludeConfigKey, original) })

	viper.Set(excludeConfigKey, []string{"["})

	_, err := compileExcludes()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude pattern")
}

func TestRunTimeout(t *testing.T) {
	original := viper.Get(runTimeoutKey)
	t.Cleanup(func() { viper.Set(runTimeoutKey, original) })

	viper.Set(runTimeoutKey, 30)

	assert.Equal(t, "30s", runTimeout().String())
}
