package entity

import "errors"

var (
	ErrMissingFile     = errors.New("no file provided")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTimeout         = errors.New("validation timed out")
	ErrToolUnavailable = errors.New("validator tool unavailable")
	ErrInternal        = errors.New("internal error")
)

type OutcomeKind string

const (
	OutcomePassed          OutcomeKind = "passed"
	OutcomeFindings        OutcomeKind = "findings"
	OutcomeMissingFile     OutcomeKind = "missing_file"
	OutcomeUnsupportedType OutcomeKind = "unsupported_type"
	OutcomeTimeout         OutcomeKind = "timeout"
	OutcomeToolUnavailable OutcomeKind = "tool_unavailable"
	OutcomeInternalError   OutcomeKind = "internal_error"
)

// Outcome is the result of one validation request. Passed and Findings are
// normal results of running the linter; every other kind is a failure to
// produce such a result and carries the cause in Err.
type Outcome struct {
	Kind        OutcomeKind
	Diagnostics string
	ExitCode    int
	Err         error
}

func Passed() Outcome {
	return Outcome{Kind: OutcomePassed}
}

func Findings(diagnostics string, exitCode int) Outcome {
	return Outcome{Kind: OutcomeFindings, Diagnostics: diagnostics, ExitCode: exitCode}
}

// Failed builds a failure outcome. The kind is derived from the sentinel
// wrapped by err; anything unrecognised is an internal error.
func Failed(err error) Outcome {
	kind := OutcomeInternalError
	switch {
	case errors.Is(err, ErrMissingFile):
		kind = OutcomeMissingFile
	case errors.Is(err, ErrUnsupportedType):
		kind = OutcomeUnsupportedType
	case errors.Is(err, ErrTimeout):
		kind = OutcomeTimeout
	case errors.Is(err, ErrToolUnavailable):
		kind = OutcomeToolUnavailable
	}
	return Outcome{Kind: kind, Err: err}
}

// OK reports whether the document was linted without findings.
func (o Outcome) OK() bool {
	return o.Kind == OutcomePassed
}

// Linted reports whether the linter produced a verdict at all.
func (o Outcome) Linted() bool {
	return o.Kind == OutcomePassed || o.Kind == OutcomeFindings
}
