// Package domain holds the change-classification and rerun-scheduling
// core: the pure decision procedure mapping changed paths to an action,
// and the watch loop that executes those actions.
package domain

import (
	"os"
	"strings"

	m "retest.dev/pkg/retest/internal/model"
)

// Classify partitions changed paths against the two watched roots.
// Inputs must already be normalized identically to the roots (absolute,
// symlinks resolved, cleaned); see adapter.SourceFSAdapter.Normalize.
//
// A path lands in at most one bucket. When the roots are nested and a
// path falls under both, code wins: any code change invalidates the
// current environment regardless of which test-looking paths also
// changed. Paths under neither root are silently dropped.
//
// Classify is pure and total: empty input yields an empty
// classification, never an error.
func Classify(paths []m.Path, codeRoot, testRoot m.Path) m.Classification {
	var classification m.Classification

	for _, path := range paths {
		switch {
		case within(path, codeRoot):
			classification.Code = append(classification.Code, path)
		case within(path, testRoot):
			classification.Tests = append(classification.Tests, path)
		}
	}

	return classification
}

// within reports whether path equals root or is a descendant of it.
// Both sides are assumed normalized, so plain prefix comparison on a
// separator boundary is exact.
func within(path, root m.Path) bool {
	if root == "" {
		return false
	}

	if path == root {
		return true
	}

	return strings.HasPrefix(string(path), string(root)+string(os.PathSeparator))
}
