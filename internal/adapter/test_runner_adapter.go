package adapter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	m "retest.dev/pkg/retest/internal/model"
)

// DefaultTestTimeout bounds a single test command invocation.
const DefaultTestTimeout = 2 * time.Minute

// ResultSink receives test outcomes as the runner produces them.
// Reporters satisfy it; a fresh sink is handed in per run so results
// never mix across runs.
type ResultSink interface {
	Record(result m.TestResult)
}

// TestRunner abstracts the test-execution mechanism. Both entry points
// stream pass/fail/skip/error outcomes to the sink; a failing test
// never aborts its siblings or the batch.
type TestRunner interface {
	// RunDirectory executes every test unit under dir.
	RunDirectory(ctx context.Context, dir m.Path, env m.Environment, sink ResultSink) error

	// RunFiles executes exactly the given test files and no others.
	RunFiles(ctx context.Context, files []m.Path, env m.Environment, sink ResultSink) error
}

// LocalTestRunnerAdapter runs tests through an external test command
// (by default `go test -v`) and parses its verbose output into
// per-test results.
type LocalTestRunnerAdapter struct {
	command []string
	env     []string
	timeout time.Duration
}

// NewLocalTestRunnerAdapter constructs a runner. Empty command falls
// back to `go test -v`; extraEnv entries are appended to the process
// environment around every invocation.
func NewLocalTestRunnerAdapter(command []string, extraEnv []string, timeout time.Duration) *LocalTestRunnerAdapter {
	if len(command) == 0 {
		command = []string{"go", "test", "-v"}
	}

	if timeout <= 0 {
		timeout = DefaultTestTimeout
	}

	return &LocalTestRunnerAdapter{
		command: command,
		env:     extraEnv,
		timeout: timeout,
	}
}

// RunDirectory runs the whole suite under dir.
func (a *LocalTestRunnerAdapter) RunDirectory(ctx context.Context, dir m.Path, env m.Environment, sink ResultSink) error {
	return a.run(ctx, dir, []string{"./..."}, "", sink)
}

// RunFiles runs exactly the given test files. Files are grouped by
// directory and each group run with one invocation, since the test
// command resolves file arguments relative to its working directory.
func (a *LocalTestRunnerAdapter) RunFiles(ctx context.Context, files []m.Path, env m.Environment, sink ResultSink) error {
	groups := make(map[string][]string)

	for _, file := range files {
		dir := filepath.Dir(string(file))
		groups[dir] = append(groups[dir], filepath.Base(string(file)))
	}

	dirs := make([]string, 0, len(groups))
	for dir := range groups {
		dirs = append(dirs, dir)
	}

	sort.Strings(dirs)

	for _, dir := range dirs {
		names := groups[dir]
		sort.Strings(names)

		if err := a.run(ctx, m.Path(dir), names, m.Path(filepath.Join(dir, names[0])), sink); err != nil {
			return err
		}
	}

	return nil
}

// run executes one test command invocation in dir and streams parsed
// results to the sink. A non-zero exit with parsed failures is a normal
// failed run; a non-zero exit with nothing parsed (a compile error in
// the tests, say) is recorded as a single errored result.
func (a *LocalTestRunnerAdapter) run(ctx context.Context, dir m.Path, args []string, file m.Path, sink ResultSink) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	//nolint:gosec // command and args come from trusted configuration
	cmd := exec.CommandContext(ctx, a.command[0], append(a.command[1:], args...)...)
	cmd.Dir = string(dir)
	cmd.Env = append(os.Environ(), a.env...)

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()

	results := parseTestOutput(output.String(), file)
	for _, result := range results {
		sink.Record(result)
	}

	if runErr == nil || anyFailure(results) {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		// The command could not run at all; surface it to the run
		// boundary instead of inventing a result.
		return fmt.Errorf("run tests in %s: %w", dir, runErr)
	}

	slog.Warn("test command failed without test results", "dir", dir, "error", runErr)

	sink.Record(m.TestResult{
		Name:   string(dir),
		File:   file,
		Status: m.Errored,
		Output: strings.TrimSpace(output.String()),
	})

	return nil
}

func anyFailure(results []m.TestResult) bool {
	for _, result := range results {
		if result.Status == m.Failed || result.Status == m.Errored {
			return true
		}
	}

	return false
}

// resultLine matches `--- PASS: TestName (0.02s)` lines, including the
// indented subtest form.
var resultLine = regexp.MustCompile(`^\s*--- (PASS|FAIL|SKIP): (\S+) \(([0-9.]+)s\)`)

// parseTestOutput converts verbose `go test` output into results. Lines
// between a test's RUN marker and its verdict are attached as the
// test's output so failures carry their diagnostics.
func parseTestOutput(output string, file m.Path) []m.TestResult {
	var results []m.TestResult

	captured := make(map[string][]string)

	var current string

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if name, ok := strings.CutPrefix(strings.TrimSpace(line), "=== RUN   "); ok {
			current = name
			continue
		}

		if match := resultLine.FindStringSubmatch(line); match != nil {
			status := m.Passed

			switch match[1] {
			case "FAIL":
				status = m.Failed
			case "SKIP":
				status = m.Skipped
			}

			name := match[2]
			elapsed, _ := strconv.ParseFloat(match[3], 64)

			result := m.TestResult{
				Name:    name,
				File:    file,
				Status:  status,
				Elapsed: time.Duration(elapsed * float64(time.Second)),
			}

			if status != m.Passed {
				result.Output = strings.TrimSpace(strings.Join(captured[name], "\n"))
			}

			results = append(results, result)

			delete(captured, name)
			current = ""

			continue
		}

		if current != "" {
			captured[current] = append(captured[current], line)
		}
	}

	return results
}
