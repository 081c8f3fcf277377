package commands

import (
	"errors"
	"fmt"
	"io"

	"taskman/internal/exitcode"
	"taskman/internal/service"
)

// ExitCode maps an operation error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, service.ErrInvalidTask),
		errors.Is(err, service.ErrNoFieldsToUpdate),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, ErrTaskRefRequired),
		errors.Is(err, ErrInvalidTaskRef):
		return exitcode.UserError
	case errors.Is(err, service.ErrUnauthorized):
		return exitcode.AuthError
	default:
		return exitcode.BackendError
	}
}

// report prints err in the CLI's error format and returns its exit code.
func report(errOut io.Writer, err error) int {
	code := ExitCode(err)
	switch code {
	case exitcode.AuthError:
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
	case exitcode.BackendError:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return code
}

// refError reports a task reference that matched nothing. Its message is
// shown as is; it unwraps to service.ErrNotFound.
type refError struct {
	msg string
}

func (e *refError) Error() string { return e.msg }
func (e *refError) Unwrap() error { return service.ErrNotFound }
