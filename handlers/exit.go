// handlers/exit.go
package handlers

import (
	"errors"
	"fmt"

	"github.com/gewnthar/ulsync/models"
	"github.com/gewnthar/ulsync/services"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation ran and failed
	ExitCommandError = 2 // bad flags, arguments or configuration
	ExitDeclined     = 3 // the user did not confirm a destructive step
)

// ExitError carries an exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
	// Reported is set when the command already wrote the failure to its output.
	Reported bool
}

func (e *ExitError) Error() string {
	switch {
	case e.Message == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps an error to the process exit code. ExitError codes win;
// otherwise the error taxonomy decides.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case errors.Is(err, models.ErrConfirmationDeclined):
		return ExitDeclined
	case errors.Is(err, services.ErrInvalidQuery), models.KindOf(err) == models.ConfigError:
		return ExitCommandError
	}
	return ExitFailure
}

// errorCode names err for JSON output.
func errorCode(err error) string {
	if k := models.KindOf(err); k != models.KindUnknown {
		return k.String()
	}
	if errors.Is(err, ErrNotFound) {
		return "NotFound"
	}
	switch GetExitCode(err) {
	case ExitCommandError:
		return "CommandError"
	case ExitDeclined:
		return models.ConfirmationDeclined.String()
	}
	return "Error"
}
