// Package gate decides whether deployment commands may run at all for a
// project. It is a pure predicate over persisted configuration, checked once
// at session start rather than per operation: a partially-configured backend
// must be caught before it can produce ambiguous state corruption.
package gate

import (
	"fmt"
	"strings"

	"github.com/appforge/appforge/internal/interfaces"
)

// Issue codes reported by the enablement gate
const (
	CodeProviderNotConnected       = "PROVIDER_NOT_CONNECTED"
	CodeBackendConfigInvalid       = "BACKEND_CONFIG_INVALID"
	CodeBackendReadWriteUnverified = "BACKEND_READWRITE_UNVERIFIED"
	CodeBackendLockingUnverified   = "BACKEND_LOCKING_UNVERIFIED"
)

// Issue is one failed precondition with a remediation hint
type Issue struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Remediation string `json:"remediation"`
}

// Result is the gate's verdict: deployment is allowed only with zero issues
type Result struct {
	Allowed bool    `json:"allowed"`
	Issues  []Issue `json:"issues,omitempty"`
}

// Evaluate checks every deployment precondition independently and reports each
// failure as its own issue
func Evaluate(doc *interfaces.ProjectDocument) Result {
	var issues []Issue

	if !doc.ProviderConnected {
		issues = append(issues, Issue{
			Code:        CodeProviderNotConnected,
			Message:     "cloud provider integration is not connected",
			Remediation: "run 'appforge provider connect' and complete the provider setup",
		})
	}

	if missing := missingBackendFields(doc.Backend); len(missing) > 0 {
		issues = append(issues, Issue{
			Code:        CodeBackendConfigInvalid,
			Message:     fmt.Sprintf("backend configuration is incomplete: missing %s", strings.Join(missing, ", ")),
			Remediation: "set the missing backend fields in the project configuration",
		})
	}

	if !doc.BackendValidation.ReadWriteOK {
		issues = append(issues, Issue{
			Code:        CodeBackendReadWriteUnverified,
			Message:     "backend read/write validation has not passed",
			Remediation: "run 'appforge backend validate' to verify the state backend",
		})
	}

	if !doc.BackendValidation.LockOK {
		issues = append(issues, Issue{
			Code:        CodeBackendLockingUnverified,
			Message:     "backend lock-acquisition validation has not passed",
			Remediation: "run 'appforge backend validate' to verify backend locking",
		})
	}

	return Result{
		Allowed: len(issues) == 0,
		Issues:  issues,
	}
}

// missingBackendFields returns the names of required backend fields that are empty
func missingBackendFields(backend interfaces.BackendSettings) []string {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"bucket", backend.Bucket},
		{"region", backend.Region},
		{"statePrefix", backend.StatePrefix},
		{"lockStrategy", backend.LockStrategy},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}
