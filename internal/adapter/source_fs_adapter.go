// Package adapter contains the infrastructure adapters the watch loop
// is wired with: filesystem access, change notification, code loading,
// test execution and report persistence.
package adapter

import (
	"fmt"
	"os"
	"path/filepath"

	m "retest.dev/pkg/retest/internal/model"
)

// SourceFSAdapter abstracts filesystem operations the core relies on.
// It hides direct `os` access so the loop and the commands can be
// tested without touching the disk.
type SourceFSAdapter interface {
	// Walk traverses the provided root path. When recursive is false the
	// implementation limits itself to the root directory (no sub-dirs).
	Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error

	// FileInfo returns metadata for a path so callers can check existence
	// or distinguish files from directories.
	FileInfo(path m.Path) (os.FileInfo, error)

	// Normalize resolves a path to its canonical absolute form: absolute,
	// symlinks resolved, cleaned, trailing separators stripped. Event
	// paths and watch roots must go through the same normalization or
	// classification silently fails.
	Normalize(path m.Path) (m.Path, error)

	// FindProjectRoot searches for a go.mod file walking up the directory
	// tree. Used by the package variant to resolve the watch roots.
	FindProjectRoot(startPath m.Path) (m.Path, error)
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk. It
// is defined here to avoid leaking the standard-library type into the
// domain layer.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFSAdapter is the os-backed SourceFSAdapter implementation.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter ready to be
// wired into the loop.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Walk iterates over files under root, optionally descending into subdirectories.
func (a *LocalSourceFSAdapter) Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && !recursive && path != rootStr {
			return filepath.SkipDir
		}

		return fn(path, info, nil)
	})
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// Normalize resolves path to an absolute, symlink-free, cleaned form.
// Symlink resolution is best-effort: a path that no longer exists (a
// just-deleted file, for example) is still returned absolute and cleaned.
func (a *LocalSourceFSAdapter) Normalize(path m.Path) (m.Path, error) {
	abs, err := filepath.Abs(string(path))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %s: %w", path, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// The path may not exist yet (or anymore); fall back to the
		// cleaned absolute form so classification still sees it.
		resolved = filepath.Clean(abs)
	}

	return m.Path(resolved), nil
}

// FindProjectRoot searches for a go.mod file walking up the directory tree.
func (a *LocalSourceFSAdapter) FindProjectRoot(startPath m.Path) (m.Path, error) {
	dir := string(startPath)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return m.Path(dir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory of %s", startPath)
		}

		dir = parent
	}
}
