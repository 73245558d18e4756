package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "retest.dev/pkg/retest/internal/model"
)

func TestClassify_SplitsByRoot(t *testing.T) {
	classification := Classify(
		[]m.Path{
			"/proj/r/util.go",
			"/proj/tests/util_test.go",
			"/proj/r/deep/nested.go",
		},
		"/proj/r",
		"/proj/tests",
	)

	assert.Equal(t, []m.Path{"/proj/r/util.go", "/proj/r/deep/nested.go"}, classification.Code)
	assert.Equal(t, []m.Path{"/proj/tests/util_test.go"}, classification.Tests)
}

func TestClassify_DropsPathsUnderNeitherRoot(t *testing.T) {
	classification := Classify(
		[]m.Path{"/elsewhere/file.go", "/proj/readme.md"},
		"/proj/r",
		"/proj/tests",
	)

	assert.Empty(t, classification.Code)
	assert.Empty(t, classification.Tests)
}

func TestClassify_CodeWinsWhenRootsNest(t *testing.T) {
	// Test root inside the code root: a path under both buckets as code.
	classification := Classify(
		[]m.Path{"/proj/tests/util_test.go", "/proj/main.go"},
		"/proj",
		"/proj/tests",
	)

	assert.Equal(t, []m.Path{"/proj/tests/util_test.go", "/proj/main.go"}, classification.Code)
	assert.Empty(t, classification.Tests)
}

func TestClassify_PrefixWithoutSeparatorBoundaryDoesNotMatch(t *testing.T) {
	// "/proj/r2" shares a string prefix with the root "/proj/r" but is a
	// sibling directory, not a descendant.
	classification := Classify(
		[]m.Path{"/proj/r2/file.go", "/proj/tests2/x_test.go"},
		"/proj/r",
		"/proj/tests",
	)

	assert.Empty(t, classification.Code)
	assert.Empty(t, classification.Tests)
}

func TestClassify_RootItselfMatches(t *testing.T) {
	classification := Classify([]m.Path{"/proj/r"}, "/proj/r", "/proj/tests")

	assert.Equal(t, []m.Path{"/proj/r"}, classification.Code)
}

func TestClassify_EmptyInputYieldsEmptyClassification(t *testing.T) {
	classification := Classify(nil, "/proj/r", "/proj/tests")

	assert.Empty(t, classification.Code)
	assert.Empty(t, classification.Tests)
}

func TestClassify_EmptyRootNeverMatches(t *testing.T) {
	classification := Classify([]m.Path{"/proj/r/util.go"}, "", "/proj/tests")

	assert.Empty(t, classification.Code)
	assert.Empty(t, classification.Tests)
}

func TestClassify_IsDeterministic(t *testing.T) {
	paths := []m.Path{"/proj/r/a.go", "/proj/tests/b_test.go", "/nope/c.go"}

	first := Classify(paths, "/proj/r", "/proj/tests")
	second := Classify(paths, "/proj/r", "/proj/tests")

	require.Equal(t, first, second)
}
