package output

import (
	"errors"

	"github.com/modelyard/myd/internal/errdefs"
)

// Exit codes for the CLI
const (
	ExitOK          = 0  // Success
	ExitGeneral     = 1  // General error
	ExitUsage       = 2  // Invalid usage / bad arguments
	ExitAuth        = 3  // Authentication failure
	ExitNotFound    = 4  // Entity not found
	ExitConflict    = 5  // Entity already exists
	ExitForbidden   = 6  // Permission denied
	ExitBadRequest  = 7  // Backend rejected the request
	ExitTimeout     = 8  // Request timeout
	ExitBackend     = 9  // Backend error (non-specific)
	ExitConfig      = 10 // Configuration error
	ExitNetwork     = 11 // Network connectivity error
	ExitUnsupported = 12 // Operation not supported by this backend
)

// ExitCode maps an error to its CLI exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errdefs.ErrUnauthorized):
		return ExitAuth
	case errors.Is(err, errdefs.ErrNotExists):
		return ExitNotFound
	case errors.Is(err, errdefs.ErrAlreadyExists):
		return ExitConflict
	case errors.Is(err, errdefs.ErrForbidden):
		return ExitForbidden
	case errors.Is(err, errdefs.ErrMissingSpec), errors.Is(err, errdefs.ErrBadRequest):
		return ExitBadRequest
	case errors.Is(err, errdefs.ErrTimeout):
		return ExitTimeout
	case errors.Is(err, errdefs.ErrConfiguration):
		return ExitConfig
	case errors.Is(err, errdefs.ErrConnection):
		return ExitNetwork
	case errors.Is(err, errdefs.ErrUnsupported):
		return ExitUnsupported
	case errors.Is(err, errdefs.ErrBackend):
		return ExitBackend
	default:
		return ExitGeneral
	}
}

// CLIError carries an explicit exit code and an optional user-facing hint.
type CLIError struct {
	Code    int
	Message string
	Hint    string
}

// Error implements the error interface
func (e *CLIError) Error() string {
	return e.Message
}

// NewCLIError creates a new CLIError
func NewCLIError(code int, msg string) *CLIError {
	return &CLIError{Code: code, Message: msg}
}

// WithHint adds a user-facing hint to the error
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// Report prints an error via the formatter and returns the exit code for
// the caller to pass to os.Exit.
func Report(formatter Formatter, err error) int {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		formatter.PrintError(err)
		if cliErr.Hint != "" {
			formatter.PrintHint(cliErr.Hint)
		}
		return cliErr.Code
	}
	formatter.PrintError(err)
	return ExitCode(err)
}
