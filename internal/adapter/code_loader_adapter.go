package adapter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	m "retest.dev/pkg/retest/internal/model"
)

// DefaultLoadTimeout bounds one load of the code root.
const DefaultLoadTimeout = 2 * time.Minute

// LoadError is returned when loading the code root fails (compile
// error, load-time failure). The loop reports it as a failed run and
// keeps watching with the previous environment.
type LoadError struct {
	Dir    m.Path
	Output string
	Err    error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Dir, e.Err)
}

// Unwrap exposes the underlying exec error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// CodeLoader abstracts the code-loading mechanism: given a directory it
// loads every source unit into a brand-new execution environment and
// returns a handle to it. Failures propagate as *LoadError.
type CodeLoader interface {
	LoadAll(ctx context.Context, dir m.Path) (m.Environment, error)
}

// LocalCodeLoaderAdapter loads a code root by running a build command
// (by default `go build ./...`) in it. A clean exit produces a fresh
// environment handle; the previous handle is simply abandoned, never
// mutated, so stale definitions cannot leak forward.
type LocalCodeLoaderAdapter struct {
	command []string
	env     []string
	timeout time.Duration
}

// NewLocalCodeLoaderAdapter constructs a loader running the given
// command. Empty command falls back to `go build ./...`; extraEnv
// entries (KEY=VALUE) are appended to the process environment for the
// package variant's project-specific variables.
func NewLocalCodeLoaderAdapter(command []string, extraEnv []string, timeout time.Duration) *LocalCodeLoaderAdapter {
	if len(command) == 0 {
		command = []string{"go", "build", "./..."}
	}

	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}

	return &LocalCodeLoaderAdapter{
		command: command,
		env:     extraEnv,
		timeout: timeout,
	}
}

// LoadAll runs the load command in dir and returns a fresh environment
// handle on success.
func (a *LocalCodeLoaderAdapter) LoadAll(ctx context.Context, dir m.Path) (m.Environment, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.command[0], a.command[1:]...)
	cmd.Dir = string(dir)
	cmd.Env = append(os.Environ(), a.env...)

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	started := time.Now()

	if err := cmd.Run(); err != nil {
		slog.Error("code load failed", "dir", dir, "error", err)

		return m.Environment{}, &LoadError{
			Dir:    dir,
			Output: output.String(),
			Err:    err,
		}
	}

	env := m.Environment{
		ID:       uuid.NewString(),
		CodeRoot: dir,
		LoadedAt: started,
	}

	slog.Info("code loaded", "dir", dir, "environment", env.ID, "elapsed", time.Since(started))

	return env, nil
}
