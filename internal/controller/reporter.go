// Package controller provides the output surfaces for watch sessions:
// the per-run Reporter sink and the session-level UI, with simple-text
// and TUI implementations.
package controller

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"
	m "retest.dev/pkg/retest/internal/model"
)

// Reporter accumulates the outcomes of exactly one run. Every run gets
// its own instance via UI.Fresh, so results from one run never mix with
// another; this isolation is a correctness requirement, not styling.
type Reporter interface {
	// RunStarted announces the run kind and, for targeted runs, files.
	RunStarted(kind m.RunKind, files []m.Path)

	// Record adds one test outcome. Satisfies adapter.ResultSink.
	Record(result m.TestResult)

	// LoadFailed marks the run as failed at the load step.
	LoadFailed(err error)

	// Summarize closes out the run and returns its report.
	Summarize() m.RunReport
}

// UI is the session-level surface the watch loop talks to: lifecycle,
// phase display, and the factory producing isolated per-run reporters.
type UI interface {
	Start(ctx context.Context) error
	Close()

	// Done is closed when the user asked the UI to quit (TUI 'q');
	// surfaces without an interactive quit never close it.
	Done() <-chan struct{}

	PhaseChanged(phase m.Phase)
	Fresh() Reporter
	RunCompleted(report m.RunReport)
}

// Reporter selection values for the `reporter` config key.
const (
	ReporterAuto   = "auto"
	ReporterSimple = "simple"
	ReporterTUI    = "tui"
)

// NewUI selects and constructs the session UI. Auto picks the TUI on a
// terminal and the simple reporter otherwise.
func NewUI(kind string, output *os.File) (UI, error) {
	switch kind {
	case ReporterAuto:
		if IsTTY(output) {
			return NewTUI(output)
		}

		return NewSimpleUI(output), nil
	case ReporterSimple:
		return NewSimpleUI(output), nil
	case ReporterTUI:
		return NewTUI(output)
	default:
		return nil, fmt.Errorf("unknown reporter %q (want %s, %s or %s)", kind, ReporterAuto, ReporterSimple, ReporterTUI)
	}
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// runAccumulator is the accumulation state shared by both reporter
// implementations. The runner records from a single goroutine, but the
// mutex keeps the TUI's reads safe too.
type runAccumulator struct {
	mu     sync.Mutex
	report m.RunReport
}

func newRunAccumulator() *runAccumulator {
	return &runAccumulator{}
}

func (a *runAccumulator) start(kind m.RunKind, files []m.Path) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.report = m.RunReport{
		ID:        uuid.NewString(),
		Kind:      kind,
		Targets:   files,
		StartedAt: time.Now(),
	}
}

func (a *runAccumulator) record(result m.TestResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.report.Results = append(a.report.Results, result)
}

func (a *runAccumulator) loadFailed(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.report.LoadError = err.Error()
}

func (a *runAccumulator) summarize() m.RunReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.report.StartedAt.IsZero() {
		a.report.Duration = time.Since(a.report.StartedAt)
	}

	return a.report
}
