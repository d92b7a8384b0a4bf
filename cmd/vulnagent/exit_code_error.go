package main

import vaerrors "vulnagent/internal/errors"

// Exit codes for failures that were already rendered to the user. Scripts
// can tell a bad invocation from an agent-side failure without parsing output.
const (
	exitCodeState     = 2
	exitCodeSemantic  = 3
	exitCodeTransport = 4
)

// ExitCodeError wraps an error with a specific process exit code. main exits
// with Code without printing Err again.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// renderedFailure marks err as already shown and picks its exit code.
func renderedFailure(err error) error {
	if err == nil {
		return nil
	}
	code := 1
	switch vaerrors.KindOf(err) {
	case vaerrors.KindState:
		code = exitCodeState
	case vaerrors.KindSemantic:
		code = exitCodeSemantic
	case vaerrors.KindTransport:
		code = exitCodeTransport
	}
	return &ExitCodeError{Code: code, Err: err}
}
