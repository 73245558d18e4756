package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"retest.dev/pkg/retest/internal/adapter"
	m "retest.dev/pkg/retest/internal/model"
)

// SimpleUI implements UI with plain line output, suited to pipes and CI
// logs. It never blocks and has no lifecycle of its own.
type SimpleUI struct {
	out io.Writer
}

// NewSimpleUI creates a SimpleUI writing to out.
func NewSimpleUI(out io.Writer) *SimpleUI {
	return &SimpleUI{out: out}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context) error {
	return ctx.Err()
}

// Close finalizes the UI (no-op).
func (s *SimpleUI) Close() {}

// Done never closes: plain output has no interactive quit, the process
// ends by signal.
func (s *SimpleUI) Done() <-chan struct{} {
	return nil
}

// PhaseChanged prints the loop's state transitions.
func (s *SimpleUI) PhaseChanged(phase m.Phase) {
	switch phase {
	case m.Bootstrapping:
		s.printf("loading code and running the full suite...\n")
	case m.Watching:
		s.printf("watching for changes (ctrl-c to stop)\n")
	case m.Running:
		// The run header announces itself via RunStarted.
	}
}

// Fresh returns an isolated reporter for one run.
func (s *SimpleUI) Fresh() Reporter {
	return &simpleReporter{out: s.out, acc: newRunAccumulator()}
}

// RunCompleted renders the run's summary table.
func (s *SimpleUI) RunCompleted(report m.RunReport) {
	s.printf("%s", renderSummaryTable(report))

	if report.Failed() {
		s.printf("run failed\n\n")
		return
	}

	s.printf("run passed\n\n")
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

// simpleReporter prints results as they arrive and accumulates them
// for the final report.
type simpleReporter struct {
	out io.Writer
	acc *runAccumulator
}

func (r *simpleReporter) RunStarted(kind m.RunKind, files []m.Path) {
	r.acc.start(kind, files)

	switch kind {
	case m.RunFull:
		r.printf("\n--> full run\n")
	case m.RunTargeted:
		r.printf("\n--> targeted run: %s\n", joinPaths(files))
	case m.RunNone:
	}
}

func (r *simpleReporter) Record(result m.TestResult) {
	r.acc.record(result)

	r.printf("  %-5s %s (%s)\n", result.Status.String(), result.Name, result.Elapsed.Round(time.Millisecond))

	if result.Status != m.Passed && result.Output != "" {
		r.printf("%s\n", indent(result.Output, "    "))
	}
}

func (r *simpleReporter) LoadFailed(err error) {
	r.acc.loadFailed(err)

	r.printf("  load failed: %v\n", err)

	var loadErr *adapter.LoadError
	if errors.As(err, &loadErr) && loadErr.Output != "" {
		r.printf("%s\n", indent(strings.TrimSpace(loadErr.Output), "    "))
	}
}

func (r *simpleReporter) Summarize() m.RunReport {
	return r.acc.summarize()
}

func (r *simpleReporter) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func renderSummaryTable(report m.RunReport) string {
	passed, failed, skipped, errored := report.Counts()

	var buffer bytes.Buffer

	table := tablewriter.NewWriter(&buffer)
	table.SetHeader([]string{"Status", "Tests"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	table.Append([]string{"pass", fmt.Sprintf("%d", passed)})
	table.Append([]string{"fail", fmt.Sprintf("%d", failed)})

	if skipped > 0 {
		table.Append([]string{"skip", fmt.Sprintf("%d", skipped)})
	}

	if errored > 0 {
		table.Append([]string{"error", fmt.Sprintf("%d", errored)})
	}

	table.SetFooter([]string{
		report.Kind.String(),
		report.Duration.Round(time.Millisecond).String(),
	})

	table.Render()

	return buffer.String()
}

func joinPaths(paths []m.Path) string {
	parts := make([]string, 0, len(paths))
	for _, path := range paths {
		parts = append(parts, string(path))
	}

	return strings.Join(parts, ", ")
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}

	return strings.Join(lines, "\n")
}
