// Package engine invokes a containerized IaC tool and translates its textual
// and exit-code contract into structured results.
package engine

import (
	"errors"
	"fmt"
)

// Error codes surfaced by the engine adapter
const (
	CodeRunnerUnavailable = "RUNNER_UNAVAILABLE"
	CodeCommandFailed     = "TF_CMD_FAILED"
	CodeAdapterError      = "ADAPTER_ERROR"
)

// Error represents a structured engine failure with a stable machine-readable code
type Error struct {
	Code    string // Machine-readable error code
	Message string // Human-readable message
	Stderr  string // Captured stderr from the IaC tool, when it ran
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewRunnerUnavailableError reports that the container engine itself is missing
func NewRunnerUnavailableError(runtime string) *Error {
	return &Error{
		Code:    CodeRunnerUnavailable,
		Message: fmt.Sprintf("container runtime %q not found: install it or set APPFORGE_CONTAINER_RUNTIME", runtime),
	}
}

// NewCommandFailedError reports that the IaC tool ran and reported failure
func NewCommandFailedError(action string, exitCode int, stderr string) *Error {
	return &Error{
		Code:    CodeCommandFailed,
		Message: fmt.Sprintf("engine %s exited with code %d", action, exitCode),
		Stderr:  stderr,
	}
}

// NewAdapterError reports an unexpected failure inside the adapter itself
func NewAdapterError(err error) *Error {
	return &Error{
		Code:    CodeAdapterError,
		Message: err.Error(),
	}
}

// IsEngineError checks if an error is an engine.Error
func IsEngineError(err error) (*Error, bool) {
	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr, true
	}
	return nil, false
}

// HasCode reports whether err is an engine.Error with the given code
func HasCode(err error, code string) bool {
	engErr, ok := IsEngineError(err)
	return ok && engErr.Code == code
}
