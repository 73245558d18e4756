// Package model defines the data structures for the watch/rerun core.
package model

// Path represents a file system path.
type Path string

// WatchRole designates what a watched root contains.
type WatchRole string

const (
	// RoleCode marks the root holding the source units loaded on change.
	RoleCode WatchRole = "code"
	// RoleTests marks the root holding the test units.
	RoleTests WatchRole = "tests"
)

// WatchRoot is a normalized absolute directory watched by the loop.
// Roots must be normalized (absolute, symlinks resolved, trailing
// separators stripped) before they are compared against event paths.
type WatchRoot struct {
	Path Path
	Role WatchRole
}
