package harness

import (
	"errors"
	"fmt"
)

// Precondition failures, raised before any repository mutation.
var (
	// ErrNotARepository means a revision was requested but the package
	// path is not under version control.
	ErrNotARepository = errors.New("not a git repository")
	// ErrDirtyRepository means a revision was requested but the working
	// tree has uncommitted changes a checkout would clobber.
	ErrDirtyRepository = errors.New("repository has uncommitted changes")
	// ErrMissingSuite means the suite manifest defines no benchmarks.
	ErrMissingSuite = errors.New("no benchmark suite defined")
)

// ExecutionError reports a child process that exited nonzero, carrying
// the captured output for diagnosis.
type ExecutionError struct {
	ExitCode int
	Output   string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("benchmark run exited with code %d", e.ExitCode)
}

// ProtocolError reports a child that exited successfully but left a
// missing or malformed report at the designated output path.
type ProtocolError struct {
	Path string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed benchmark report at %s: %v", e.Path, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
