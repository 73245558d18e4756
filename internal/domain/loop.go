package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"retest.dev/pkg/retest/internal/adapter"
	"retest.dev/pkg/retest/internal/controller"
	m "retest.dev/pkg/retest/internal/model"
)

// Loop is the long-lived watch loop: bootstrap once, then react to
// change batches until the context is cancelled.
type Loop interface {
	// Run bootstraps (full load + full suite) and then blocks watching.
	// It returns only on subscription failure or context cancellation;
	// load and test failures degrade to reported failed runs.
	Run(ctx context.Context) error

	// RunOnce performs just the bootstrap sequence and returns its
	// report. Backs the one-shot `retest run` command.
	RunOnce(ctx context.Context) (m.RunReport, error)
}

// LoopConfig carries the watch roots and report destination. Roots must
// be normalized before construction (see adapter.SourceFSAdapter).
type LoopConfig struct {
	CodeRoot m.Path
	TestRoot m.Path

	// Reports is the directory the latest run snapshot is written to.
	// Empty disables persistence.
	Reports m.Path
}

type loop struct {
	cfg LoopConfig

	fs       adapter.SourceFSAdapter
	notifier adapter.Notifier
	loader   adapter.CodeLoader
	runner   adapter.TestRunner
	store    adapter.ReportStore
	ui       controller.UI

	// env is loop-owned state: replaced wholesale on every successful
	// full reload, read by targeted reruns, never shared outside the
	// loop's single logical worker.
	env m.Environment
}

// NewLoop constructs the watch loop from its collaborators.
func NewLoop(
	cfg LoopConfig,
	fs adapter.SourceFSAdapter,
	notifier adapter.Notifier,
	loader adapter.CodeLoader,
	runner adapter.TestRunner,
	store adapter.ReportStore,
	ui controller.UI,
) Loop {
	return &loop{
		cfg:      cfg,
		fs:       fs,
		notifier: notifier,
		loader:   loader,
		runner:   runner,
		store:    store,
		ui:       ui,
	}
}

func (l *loop) Run(ctx context.Context) error {
	l.ui.PhaseChanged(m.Bootstrapping)

	l.fullRun(ctx)

	l.ui.PhaseChanged(m.Watching)

	roots := []m.Path{l.cfg.CodeRoot, l.cfg.TestRoot}

	err := l.notifier.Subscribe(ctx, roots, func(batch m.ChangeBatch) bool {
		l.handleBatch(ctx, batch)
		// The loop itself never asks the notifier to stop.
		return true
	})
	if err != nil {
		return fmt.Errorf("watch %s and %s: %w", l.cfg.CodeRoot, l.cfg.TestRoot, err)
	}

	return nil
}

func (l *loop) RunOnce(ctx context.Context) (m.RunReport, error) {
	l.ui.PhaseChanged(m.Bootstrapping)

	report := l.fullRun(ctx)

	return report, ctx.Err()
}

// handleBatch executes one batch synchronously to completion: classify,
// decide, act. Batches are handled strictly in arrival order; the
// notifier buffers anything that arrives while a run is in flight.
func (l *loop) handleBatch(ctx context.Context, batch m.ChangeBatch) {
	paths := l.normalize(batch.Triggering())

	outcome := Decide(Classify(paths, l.cfg.CodeRoot, l.cfg.TestRoot))

	switch outcome.Kind {
	case m.RunNone:
		// Deletions alone, or paths outside both roots.
		return

	case m.RunFull:
		l.ui.PhaseChanged(m.Running)
		l.fullRun(ctx)

	case m.RunTargeted:
		l.ui.PhaseChanged(m.Running)
		l.targetedRun(ctx, outcome.Files)
	}

	l.ui.PhaseChanged(m.Watching)
}

// fullRun reloads the code root into a brand-new environment and runs
// the whole suite against it with a fresh reporter. On load failure the
// run is reported as failed and the previous environment is kept; the
// next code change retries the reload.
func (l *loop) fullRun(ctx context.Context) m.RunReport {
	reporter := l.ui.Fresh()
	reporter.RunStarted(m.RunFull, nil)

	env, err := l.loader.LoadAll(ctx, l.cfg.CodeRoot)
	if err != nil {
		slog.Error("full reload failed", "codeRoot", l.cfg.CodeRoot, "error", err)
		reporter.LoadFailed(err)

		return l.finish(reporter)
	}

	l.env = env

	if err := l.runner.RunDirectory(ctx, l.cfg.TestRoot, l.env, reporter); err != nil {
		slog.Error("full suite run failed", "testRoot", l.cfg.TestRoot, "error", err)
		reporter.Record(m.TestResult{
			Name:   string(l.cfg.TestRoot),
			Status: m.Errored,
			Output: err.Error(),
		})
	}

	return l.finish(reporter)
}

// targetedRun executes exactly the changed test files against the
// current environment, with a fresh reporter. Code is not reloaded.
func (l *loop) targetedRun(ctx context.Context, files []m.Path) m.RunReport {
	reporter := l.ui.Fresh()
	reporter.RunStarted(m.RunTargeted, files)

	if err := l.runner.RunFiles(ctx, files, l.env, reporter); err != nil {
		slog.Error("targeted run failed", "files", files, "error", err)
		reporter.Record(m.TestResult{
			Name:   "targeted run",
			Status: m.Errored,
			Output: err.Error(),
		})
	}

	return l.finish(reporter)
}

// finish closes out a run: summarize, hand the report to the session
// surface, persist the snapshot.
func (l *loop) finish(reporter controller.Reporter) m.RunReport {
	report := reporter.Summarize()
	report.Environment = l.env.ID

	l.ui.RunCompleted(report)

	if l.cfg.Reports != "" {
		if err := l.store.SaveLatest(l.cfg.Reports, report); err != nil {
			slog.Warn("failed to save run report", "dir", l.cfg.Reports, "error", err)
		}
	}

	slog.Info("run finished",
		"kind", report.Kind.String(),
		"failed", report.Failed(),
		"duration", report.Duration.Round(time.Millisecond),
	)

	return report
}

// normalize maps event paths through the same canonicalization applied
// to the roots, dropping paths that cannot be resolved at all.
func (l *loop) normalize(paths []m.Path) []m.Path {
	if len(paths) == 0 {
		return nil
	}

	normalized := make([]m.Path, 0, len(paths))

	for _, path := range paths {
		resolved, err := l.fs.Normalize(path)
		if err != nil {
			slog.Warn("dropping unresolvable path", "path", path, "error", err)
			continue
		}

		normalized = append(normalized, resolved)
	}

	return normalized
}
