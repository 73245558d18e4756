package model

import "time"

// RunKind identifies what a triggered run executes.
type RunKind int

const (
	// RunNone means the batch required no action.
	RunNone RunKind = iota
	// RunFull means full reload of the code root plus the whole suite.
	RunFull
	// RunTargeted means only the changed test files are executed.
	RunTargeted
)

// String returns the human-readable name of the run kind.
func (k RunKind) String() string {
	switch k {
	case RunFull:
		return "full"
	case RunTargeted:
		return "targeted"
	case RunNone:
		return "none"
	}

	return "unknown"
}

// RunOutcome is the decision computed from a classification: what to
// run and, for targeted runs, exactly which test files.
type RunOutcome struct {
	Kind  RunKind
	Files []Path
}

// Environment is a handle to one successfully loaded execution
// environment. The loop replaces it wholesale on every successful full
// reload; it is never mutated in place, so stale definitions cannot
// leak into later runs.
type Environment struct {
	ID       string
	CodeRoot Path
	LoadedAt time.Time
}

// Loaded reports whether the environment handle refers to a completed load.
func (e Environment) Loaded() bool {
	return e.ID != ""
}

// TestStatus represents the outcome of a single test.
type TestStatus int

const (
	// Passed indicates the test succeeded.
	Passed TestStatus = iota
	// Failed indicates the test ran and failed.
	Failed
	// Skipped indicates the test was skipped.
	Skipped
	// Errored indicates the test could not be executed.
	Errored
)

// String returns the human-readable name of the status.
func (s TestStatus) String() string {
	switch s {
	case Passed:
		return "pass"
	case Failed:
		return "fail"
	case Skipped:
		return "skip"
	case Errored:
		return "error"
	}

	return "unknown"
}

// TestResult is one test outcome streamed to a reporter by the runner.
type TestResult struct {
	Name    string        `yaml:"name"`
	File    Path          `yaml:"file,omitempty"`
	Status  TestStatus    `yaml:"status"`
	Elapsed time.Duration `yaml:"elapsed,omitempty"`
	Output  string        `yaml:"output,omitempty"`
}

// RunReport aggregates everything a single triggered run produced.
// Every run gets its own report through a fresh reporter instance.
type RunReport struct {
	ID          string        `yaml:"id"`
	Kind        RunKind       `yaml:"kind"`
	Environment string        `yaml:"environment,omitempty"`
	StartedAt   time.Time     `yaml:"started_at"`
	Duration    time.Duration `yaml:"duration"`
	LoadError   string        `yaml:"load_error,omitempty"`
	Targets     []Path        `yaml:"targets,omitempty"`
	Results     []TestResult  `yaml:"results,omitempty"`
}

// Counts tallies results by status in pass, fail, skip, error order.
func (r RunReport) Counts() (passed, failed, skipped, errored int) {
	for _, res := range r.Results {
		switch res.Status {
		case Passed:
			passed++
		case Failed:
			failed++
		case Skipped:
			skipped++
		case Errored:
			errored++
		}
	}

	return passed, failed, skipped, errored
}

// Failed reports whether the run should be considered a failure, either
// because the load step failed or because any test failed or errored.
func (r RunReport) Failed() bool {
	if r.LoadError != "" {
		return true
	}

	_, failed, _, errored := r.Counts()

	return failed > 0 || errored > 0
}

// Phase is the watch loop's externally visible state.
type Phase int

const (
	// Bootstrapping is the initial load-everything-and-run-once state.
	Bootstrapping Phase = iota
	// Watching means the loop is blocked waiting for the next batch.
	Watching
	// Running means a triggered run is executing to completion.
	Running
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case Bootstrapping:
		return "bootstrapping"
	case Watching:
		return "watching"
	case Running:
		return "running"
	}

	return "unknown"
}
