package domain

import m "retest.dev/pkg/retest/internal/model"

// Decide maps a classification to the action to execute, in strict
// priority order:
//
//  1. any code change -> full reload plus full suite run; code changes
//     can invalidate arbitrary test behavior, so nothing cheaper is safe
//  2. else any test change -> targeted rerun of exactly those files;
//     test-only changes cannot affect code correctness
//  3. else -> no-op
//
// Like Classify it is pure; the same classification always yields the
// same outcome.
func Decide(classification m.Classification) m.RunOutcome {
	switch {
	case len(classification.Code) > 0:
		return m.RunOutcome{Kind: m.RunFull}
	case len(classification.Tests) > 0:
		return m.RunOutcome{Kind: m.RunTargeted, Files: classification.Tests}
	default:
		return m.RunOutcome{Kind: m.RunNone}
	}
}
