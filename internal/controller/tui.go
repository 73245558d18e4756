package controller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	m "retest.dev/pkg/retest/internal/model"
	"retest.dev/pkg/retest/pkg"
)

// recentRunWindow is how many completed runs the dashboard lists.
const recentRunWindow = 8

// TUI implements UI as an interactive bubbletea dashboard: loop phase,
// live run progress, recent run history and a browsable failure pane.
// Failures are spilled to disk so long sessions stay flat in memory.
type TUI struct {
	program  *tea.Program
	failures pkg.Spill[m.TestResult]
	done     chan struct{}
}

// NewTUI creates a TUI writing to output.
func NewTUI(output io.Writer) (*TUI, error) {
	failures, err := pkg.NewSpill[m.TestResult]("retest-failures")
	if err != nil {
		return nil, fmt.Errorf("create failure journal: %w", err)
	}

	tui := &TUI{
		failures: failures,
		done:     make(chan struct{}),
	}

	model := newWatchModel(failures)
	tui.program = tea.NewProgram(model, tea.WithOutput(output))

	return tui, nil
}

// Start runs the bubbletea program in the background.
func (t *TUI) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	go func() {
		defer close(t.done)

		if _, err := t.program.Run(); err != nil {
			slog.Error("tui terminated", "error", err)
		}
	}()

	return nil
}

// Close stops the program and removes the failure journal.
func (t *TUI) Close() {
	t.program.Quit()
	<-t.done

	if err := t.failures.Close(); err != nil {
		slog.Warn("failed to close failure journal", "error", err)
	}
}

// Done is closed when the user quits the dashboard.
func (t *TUI) Done() <-chan struct{} {
	return t.done
}

// PhaseChanged forwards the loop phase to the dashboard.
func (t *TUI) PhaseChanged(phase m.Phase) {
	t.program.Send(phaseMsg{phase: phase})
}

// Fresh returns an isolated per-run reporter that also feeds the
// dashboard.
func (t *TUI) Fresh() Reporter {
	return &tuiReporter{
		acc:      newRunAccumulator(),
		program:  t.program,
		failures: t.failures,
	}
}

// RunCompleted pushes the finished run into the history pane.
func (t *TUI) RunCompleted(report m.RunReport) {
	t.program.Send(runDoneMsg{report: report})
}

// tuiReporter accumulates one run and streams it to the dashboard.
type tuiReporter struct {
	acc      *runAccumulator
	program  *tea.Program
	failures pkg.Spill[m.TestResult]
}

func (r *tuiReporter) RunStarted(kind m.RunKind, files []m.Path) {
	r.acc.start(kind, files)
	r.program.Send(runStartedMsg{kind: kind, files: files})
}

func (r *tuiReporter) Record(result m.TestResult) {
	r.acc.record(result)

	if result.Status == m.Failed || result.Status == m.Errored {
		if err := r.failures.Append(result); err != nil {
			slog.Warn("failed to journal failure", "test", result.Name, "error", err)
		}
	}

	r.program.Send(resultMsg{result: result})
}

func (r *tuiReporter) LoadFailed(err error) {
	r.acc.loadFailed(err)
	r.program.Send(loadFailedMsg{err: err})
}

func (r *tuiReporter) Summarize() m.RunReport {
	return r.acc.summarize()
}

// Messages from the loop/reporter goroutine into the dashboard.
type (
	phaseMsg      struct{ phase m.Phase }
	runStartedMsg struct {
		kind  m.RunKind
		files []m.Path
	}
	resultMsg     struct{ result m.TestResult }
	loadFailedMsg struct{ err error }
	runDoneMsg    struct{ report m.RunReport }
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	phaseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// watchModel is the bubbletea model for the watch dashboard.
type watchModel struct {
	phase m.Phase
	spin  spinner.Model

	runKind   m.RunKind
	passed    int
	failed    int
	skipped   int
	errored   int
	loadError string

	recent    []m.RunReport
	totalRuns int

	failures pkg.Spill[m.TestResult]
	selected uint64
	current  *m.TestResult

	width    int
	height   int
	quitting bool
}

func newWatchModel(failures pkg.Spill[m.TestResult]) watchModel {
	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return watchModel{
		phase:    m.Bootstrapping,
		spin:     spin,
		failures: failures,
	}
}

// Init starts the spinner ticking.
func (wm watchModel) Init() tea.Cmd {
	return wm.spin.Tick
}

// Update handles keys, spinner ticks and loop messages.
func (wm watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		wm.width = msg.Width
		wm.height = msg.Height

		return wm, nil

	case tea.KeyMsg:
		return wm.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		wm.spin, cmd = wm.spin.Update(msg)

		return wm, cmd

	case phaseMsg:
		wm.phase = msg.phase
		return wm, nil

	case runStartedMsg:
		wm.runKind = msg.kind
		wm.passed, wm.failed, wm.skipped, wm.errored = 0, 0, 0, 0
		wm.loadError = ""

		return wm, nil

	case resultMsg:
		switch msg.result.Status {
		case m.Passed:
			wm.passed++
		case m.Failed:
			wm.failed++
		case m.Skipped:
			wm.skipped++
		case m.Errored:
			wm.errored++
		}

		// Follow the newest failure unless the user navigated away.
		// The reporter journals before sending, so the new failure is
		// already the last entry; "at the previous last" means follow.
		if msg.result.Status == m.Failed || msg.result.Status == m.Errored {
			if count := wm.failures.Len(); count > 0 && wm.selected+2 >= count {
				wm.selectFailure(count - 1)
			}
		}

		return wm, nil

	case loadFailedMsg:
		wm.loadError = msg.err.Error()
		return wm, nil

	case runDoneMsg:
		wm.totalRuns++

		wm.recent = append(wm.recent, msg.report)
		if len(wm.recent) > recentRunWindow {
			wm.recent = wm.recent[len(wm.recent)-recentRunWindow:]
		}

		return wm, nil
	}

	return wm, nil
}

func (wm watchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		wm.quitting = true
		return wm, tea.Quit

	case "down", "j":
		if count := wm.failures.Len(); count > 0 && wm.selected < count-1 {
			wm.selectFailure(wm.selected + 1)
		}

		return wm, nil

	case "up", "k":
		if wm.selected > 0 {
			wm.selectFailure(wm.selected - 1)
		}

		return wm, nil
	}

	return wm, nil
}

func (wm *watchModel) selectFailure(index uint64) {
	item, err := wm.failures.Get(index)
	if err != nil {
		slog.Warn("failed to read failure journal", "index", index, "error", err)
		return
	}

	wm.selected = index
	wm.current = &item
}

// View renders the dashboard.
func (wm watchModel) View() string {
	if wm.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("retest"))
	b.WriteString("  ")
	b.WriteString(wm.phaseLine())
	b.WriteString("\n\n")

	b.WriteString(wm.liveLine())
	b.WriteString("\n\n")

	if len(wm.recent) > 0 {
		b.WriteString(subtleStyle.Render("recent runs"))
		b.WriteString("\n")

		for i := len(wm.recent) - 1; i >= 0; i-- {
			b.WriteString(wm.runLine(wm.recent[i]))
			b.WriteString("\n")
		}

		b.WriteString("\n")
	}

	b.WriteString(wm.failurePane())

	b.WriteString(subtleStyle.Render("j/k failures · q quit"))
	b.WriteString("\n")

	return b.String()
}

func (wm watchModel) phaseLine() string {
	switch wm.phase {
	case m.Watching:
		return phaseStyle.Render("watching for changes")
	case m.Bootstrapping:
		return wm.spin.View() + phaseStyle.Render("bootstrapping")
	case m.Running:
		return wm.spin.View() + phaseStyle.Render("running ("+wm.runKind.String()+")")
	}

	return ""
}

func (wm watchModel) liveLine() string {
	if wm.loadError != "" {
		return failStyle.Render("load failed: ") + firstLine(wm.loadError)
	}

	parts := []string{
		passStyle.Render(fmt.Sprintf("%d pass", wm.passed)),
		failStyle.Render(fmt.Sprintf("%d fail", wm.failed)),
	}

	if wm.skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skip", wm.skipped))
	}

	if wm.errored > 0 {
		parts = append(parts, failStyle.Render(fmt.Sprintf("%d error", wm.errored)))
	}

	return strings.Join(parts, subtleStyle.Render(" · "))
}

func (wm watchModel) runLine(report m.RunReport) string {
	passed, failed, _, errored := report.Counts()

	verdict := passStyle.Render("ok")
	if report.Failed() {
		verdict = failStyle.Render("FAIL")
	}

	return fmt.Sprintf("  %s  %-8s %s  %d pass %d fail%s",
		report.StartedAt.Format("15:04:05"),
		report.Kind.String(),
		verdict,
		passed,
		failed+errored,
		subtleStyle.Render("  ("+report.Duration.Round(time.Millisecond).String()+")"),
	)
}

func (wm watchModel) failurePane() string {
	count := wm.failures.Len()
	if count == 0 || wm.current == nil {
		return ""
	}

	var b strings.Builder

	b.WriteString(subtleStyle.Render(fmt.Sprintf("failure %d/%d", wm.selected+1, count)))
	b.WriteString("\n")
	b.WriteString(failStyle.Render(wm.current.Name))

	if wm.current.File != "" {
		b.WriteString(subtleStyle.Render("  " + string(wm.current.File)))
	}

	b.WriteString("\n")

	if wm.current.Output != "" {
		b.WriteString(truncateLines(wm.current.Output, wm.outputBudget()))
		b.WriteString("\n")
	}

	b.WriteString("\n")

	return b.String()
}

// outputBudget bounds the failure output so the dashboard fits the
// terminal.
func (wm watchModel) outputBudget() int {
	budget := wm.height - 14 - len(wm.recent)
	if budget < 4 {
		budget = 4
	}

	return budget
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}

	return text
}

func truncateLines(text string, max int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= max {
		return text
	}

	return strings.Join(lines[:max], "\n") + subtleStyle.Render("\n… truncated")
}
