// Package orchestrator drives the deployment state machine: lock lifecycle,
// confirmation protocol, and the sequencing of engine operations.
package orchestrator

import (
	"errors"
	"fmt"
)

// Error represents a structured orchestration error with a stable
// machine-readable code. Callers branch on the code, never on message text.
type Error struct {
	Code        string // Machine-readable error code
	Message     string // Human-readable message
	Remediation string // Hint for the operator, when one exists
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common orchestration errors. All are recoverable-by-the-operator
// conditions, not crashes.
var (
	// Lock protocol errors
	ErrLockActive = &Error{
		Code:        "LOCK_ACTIVE",
		Message:     "another run holds the environment lock",
		Remediation: "wait for the in-progress run to finish",
	}

	ErrLockStale = &Error{
		Code:        "LOCK_STALE",
		Message:     "the environment lock is older than the staleness threshold and looks abandoned",
		Remediation: "run 'appforge deploy unlock' to force-unlock, then re-plan",
	}

	ErrReplanRequired = &Error{
		Code:        "REPLAN_REQUIRED_AFTER_FORCE_UNLOCK",
		Message:     "the environment was force-unlocked and its last plan is untrustworthy",
		Remediation: "run a successful plan before applying",
	}

	// Apply precondition errors
	ErrProdPlanStale = &Error{
		Code:        "PROD_PLAN_STALE",
		Message:     "the most recent successful plan for prod is older than the freshness window",
		Remediation: "re-run plan for prod immediately before applying",
	}

	// Destroy confirmation errors
	ErrDestroyConfirmationInvalid = &Error{
		Code:        "DESTROY_CONFIRMATION_PHRASE_INVALID",
		Message:     "the destroy confirmation phrase does not match",
		Remediation: "pass the exact phrase 'destroy <environment>'",
	}

	ErrProdDestroySecondConfirmRequired = &Error{
		Code:        "PROD_DESTROY_SECOND_CONFIRM_REQUIRED",
		Message:     "destroying prod requires the second confirmation phrase",
		Remediation: "additionally pass the exact phrase 'destroy prod'",
	}
)

// IsOrchestrationError checks if an error is an orchestrator.Error
func IsOrchestrationError(err error) (*Error, bool) {
	var orchErr *Error
	if errors.As(err, &orchErr) {
		return orchErr, true
	}
	return nil, false
}
