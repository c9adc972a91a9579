package repository

import "context"

// LintRun is the raw result of one linter invocation that ran to completion.
type LintRun struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Linter runs the external document validator against a file path.
// Implementations wrap entity.ErrTimeout when ctx expires and
// entity.ErrToolUnavailable when the executable cannot be started.
//
// Available is a side-effect free lookup of the executable. Probe actually
// runs the tool and fails with entity.ErrToolUnavailable if it does not work.
type Linter interface {
	Lint(ctx context.Context, path string) (LintRun, error)
	Probe(ctx context.Context) error
	Available() bool
	Name() string
}
