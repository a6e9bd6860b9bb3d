// Package interfaces defines the core types and collaborator interfaces for the appforge system
package interfaces

import (
	"time"
)

// DeploymentAction identifies an orchestrated operation against an environment
type DeploymentAction string

// DeploymentAction constants represent the operations the orchestrator can run
const (
	ActionPlan    DeploymentAction = "plan"
	ActionApply   DeploymentAction = "apply"
	ActionDestroy DeploymentAction = "destroy"
	ActionReport  DeploymentAction = "report"
)

// EnvironmentStatus represents the last known health of an environment's infrastructure
type EnvironmentStatus string

// EnvironmentStatus constants represent the possible environment states
const (
	StatusHealthy EnvironmentStatus = "healthy"
	StatusDrifted EnvironmentStatus = "drifted"
	StatusFailed  EnvironmentStatus = "failed"
	StatusUnknown EnvironmentStatus = "unknown"
)

// RunStatus represents the outcome of a single deployment run
type RunStatus string

// RunStatus constants represent run outcomes
const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// EnvironmentLock marks an operation in flight for one environment of one project.
// At most one lock may exist per (project, environment) at any time.
type EnvironmentLock struct {
	RunID      string           `json:"runId"`
	AcquiredAt time.Time        `json:"acquiredAt"`
	Action     DeploymentAction `json:"action"`
}

// Age returns how long the lock has been held as of now
func (l *EnvironmentLock) Age(now time.Time) time.Duration {
	return now.Sub(l.AcquiredAt)
}

// EnvironmentDeploymentState tracks the persisted deployment state of one environment.
// Mutated only by the orchestrator after each operation completes.
type EnvironmentDeploymentState struct {
	ActiveLock                  *EnvironmentLock  `json:"activeLock,omitempty"`
	LastStatus                  EnvironmentStatus `json:"lastStatus"`
	LastPlanDriftDetected       bool              `json:"lastPlanDriftDetected"`
	LastPlanAt                  *time.Time        `json:"lastPlanAt,omitempty"`
	LastApplyAt                 *time.Time        `json:"lastApplyAt,omitempty"`
	LastDestroyAt               *time.Time        `json:"lastDestroyAt,omitempty"`
	LastReportedAt              *time.Time        `json:"lastReportedAt,omitempty"`
	NeedsReplanAfterForceUnlock bool              `json:"needsReplanAfterForceUnlock"`
	LastStatusUpdatedAt         time.Time         `json:"lastStatusUpdatedAt"`
}

// ChangeSummary is the resource-count summary reported by the IaC engine
type ChangeSummary struct {
	Add     int `json:"add"`
	Change  int `json:"change"`
	Destroy int `json:"destroy"`
}

// DeploymentRunRecord is an immutable audit entry for a completed operation.
// Log lines are redacted before the record is persisted.
type DeploymentRunRecord struct {
	ID            string           `json:"id"`
	EnvironmentID string           `json:"environmentId"`
	Action        DeploymentAction `json:"action"`
	Status        RunStatus        `json:"status"`
	Actor         string           `json:"actor,omitempty"`
	Summary       *ChangeSummary   `json:"summary,omitempty"`
	Logs          []string         `json:"logs"`
	StartedAt     time.Time        `json:"startedAt"`
	FinishedAt    time.Time        `json:"finishedAt"`
	CreatedAt     time.Time        `json:"createdAt"`
	ExpiresAt     time.Time        `json:"expiresAt"`
}

// Capability is a named infrastructure concern an environment declares it needs
type Capability string

// Capability constants enumerate the supported capability vocabulary
const (
	CapabilityAppRuntime Capability = "appRuntime"
	CapabilityEnvConfig  Capability = "envConfig"
	CapabilityPostgres   Capability = "postgres"
	CapabilityDNS        Capability = "dns"
)

// PlannedModule is one deployable module derived from an environment's capability set.
// Regenerated on every planning pass, never persisted independently.
type PlannedModule struct {
	Capability  Capability        `json:"capability"`
	ModuleID    string            `json:"moduleId"`
	Constraints map[string]string `json:"constraints,omitempty"`
}

// OutputSource records where a resolved output value came from
type OutputSource string

// OutputSource constants represent output provenance
const (
	OutputSourceProvider OutputSource = "providerOutput"
	OutputSourceDefault  OutputSource = "templateDefault"
)

// OutputType is the declared type of an environment output
type OutputType string

// OutputType constants enumerate the supported output types
const (
	OutputTypeString    OutputType = "string"
	OutputTypeNumber    OutputType = "number"
	OutputTypeBoolean   OutputType = "boolean"
	OutputTypeJSON      OutputType = "json"
	OutputTypeSecretRef OutputType = "secret_ref"
)

// ResolvedOutput records what the IaC engine actually produced for one declared output
type ResolvedOutput struct {
	Key                 string       `json:"key"`
	Type                OutputType   `json:"type"`
	Value               interface{}  `json:"value,omitempty"`
	SecretRef           string       `json:"secretRef,omitempty"`
	Source              OutputSource `json:"source"`
	Sensitive           bool         `json:"sensitive"`
	Rotatable           bool         `json:"rotatable"`
	GeneratedCredential bool         `json:"isGeneratedCredential"`
}

// BackendSettings scope the IaC engine's remote state
type BackendSettings struct {
	Bucket       string `json:"bucket"`
	Region       string `json:"region"`
	Profile      string `json:"profile,omitempty"`
	StatePrefix  string `json:"statePrefix"`
	LockStrategy string `json:"lockStrategy"`
}
