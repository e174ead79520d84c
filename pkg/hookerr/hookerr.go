// Package hookerr holds the failure kinds a package lifecycle hook can
// report, and their mapping onto process exit codes.
package hookerr

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition means the host is not laid out the way the hook expects
	// (for example the broker config lacks its drop-in include). Nothing was modified.
	ErrPrecondition = errors.New("precondition failed")
	// ErrUnknownVerb means the package manager passed a lifecycle verb we do
	// not recognize. Nothing was modified.
	ErrUnknownVerb = errors.New("unknown lifecycle verb")
	// ErrUsage means the hook was invoked with the wrong arguments.
	ErrUsage = errors.New("invalid usage")
)

const (
	ExitOK           = 0
	ExitIO           = 1
	ExitUsage        = 2
	ExitPrecondition = 3
)

// IOError records a filesystem operation that failed.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IO wraps err as an *IOError, returning nil when err is nil.
func IO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// Preconditionf returns an error wrapping ErrPrecondition.
func Preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// ExitCode maps err onto the status the hook process should exit with.
// Usage problems win over preconditions, which win over plain I/O failures.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUnknownVerb), errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, ErrPrecondition):
		return ExitPrecondition
	default:
		return ExitIO
	}
}
