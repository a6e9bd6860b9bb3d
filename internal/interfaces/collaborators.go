package interfaces

import (
	"context"
)

// ExecRequest describes a single external process invocation
type ExecRequest struct {
	Command          string
	Args             []string
	Dir              string
	Env              []string
	AllowNonZeroExit bool
}

// ExecResult is the outcome of an external process invocation that actually ran
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ProcessExecutor runs external commands. The orchestration core depends only
// on this narrow contract, never on a specific container runtime.
type ProcessExecutor interface {
	Execute(ctx context.Context, req ExecRequest) (*ExecResult, error)
}

// ProjectStore loads and saves the persisted project document
type ProjectStore interface {
	Load(ctx context.Context, project string) (*ProjectDocument, error)
	Save(ctx context.Context, project string, doc *ProjectDocument) error
}

// EngineResult is the structured outcome of a plan, apply, or destroy run
type EngineResult struct {
	Summary ChangeSummary
	Logs    []string
	// Outputs holds the provider outputs reported after an apply; nil for
	// other actions or when output collection failed
	Outputs map[string]interface{}
}

// ReportResult is the structured outcome of a read-only drift report
type ReportResult struct {
	Status       EnvironmentStatus // healthy, drifted, or failed
	ErrorMessage string
	Logs         []string
}

// EngineRunner executes IaC engine actions for one environment workspace
type EngineRunner interface {
	Plan(ctx context.Context) (*EngineResult, error)
	Apply(ctx context.Context) (*EngineResult, error)
	Destroy(ctx context.Context) (*EngineResult, error)
	Report(ctx context.Context) (*ReportResult, error)
}

// EngineFactory builds an EngineRunner scoped to one environment of one
// project, restricted to the environment's planned modules
type EngineFactory interface {
	ForEnvironment(workDir, environmentID string, backend BackendSettings, modules []PlannedModule) EngineRunner
}

// BackendProber validates that the configured state backend is usable
type BackendProber interface {
	// ValidateReadWrite verifies the backend bucket accepts writes and reads back
	ValidateReadWrite(ctx context.Context, backend BackendSettings) error
	// ValidateLocking verifies a lock can be acquired and released on the backend
	ValidateLocking(ctx context.Context, backend BackendSettings) error
}
