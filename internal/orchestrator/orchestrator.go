package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/appforge/appforge/internal/capability"
	"github.com/appforge/appforge/internal/config"
	"github.com/appforge/appforge/internal/engine"
	"github.com/appforge/appforge/internal/history"
	"github.com/appforge/appforge/internal/interfaces"
	"github.com/appforge/appforge/pkg/logging"
)

// Orchestrator sequences deployment operations for a project's environments:
// lock acquisition, precondition checks, engine invocation, state persistence,
// and run history.
type Orchestrator struct {
	store   interfaces.ProjectStore
	engines interfaces.EngineFactory
	history *history.Store
	cfg     *config.Config
	clock   func() time.Time
	logger  *logging.Logger
}

// OrchestratorConfig holds all dependencies needed by the orchestrator
type OrchestratorConfig struct {
	Store   interfaces.ProjectStore
	Engines interfaces.EngineFactory
	History *history.Store
	Config  *config.Config
}

// NewOrchestrator creates an orchestrator with full configuration
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, errors.New("project store is required")
	}
	if cfg.Engines == nil {
		return nil, errors.New("engine factory is required")
	}
	if cfg.History == nil {
		return nil, errors.New("run history store is required")
	}
	if cfg.Config == nil {
		return nil, errors.New("configuration is required")
	}
	return &Orchestrator{
		store:   cfg.Store,
		engines: cfg.Engines,
		history: cfg.History,
		cfg:     cfg.Config,
		clock:   time.Now,
		logger:  logging.Orchestrator,
	}, nil
}

// WithClock overrides the orchestrator's time source, for tests
func (o *Orchestrator) WithClock(clock func() time.Time) *Orchestrator {
	o.clock = clock
	return o
}

// RunRequest identifies the target of a deployment operation
type RunRequest struct {
	Project       string
	EnvironmentID string
	WorkDir       string
	Actor         string
}

// DestroyRequest carries the confirmation phrases required to destroy an environment
type DestroyRequest struct {
	RunRequest
	ConfirmEnvironmentID string
	ConfirmPhrase        string
	ConfirmProdPhrase    string
}

// RunResult is the structured outcome of one orchestrated operation
type RunResult struct {
	Action            interfaces.DeploymentAction
	Status            interfaces.RunStatus
	Summary           *interfaces.ChangeSummary
	EnvironmentStatus interfaces.EnvironmentStatus
	Record            *interfaces.DeploymentRunRecord
}

// Plan runs a plan for an environment under the lock protocol. A successful
// plan clears the needs-replan flag set by a force unlock.
func (o *Orchestrator) Plan(ctx context.Context, req RunRequest) (*RunResult, error) {
	doc, runner, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	state := doc.EnvironmentState(req.EnvironmentID)
	if err := o.acquireLock(ctx, doc, req, state, interfaces.ActionPlan); err != nil {
		return nil, err
	}

	startedAt := o.clock()
	engineCtx, cancel := context.WithTimeout(ctx, o.cfg.EngineTimeout)
	result, engineErr := runner.Plan(engineCtx)
	cancel()
	now := o.clock()

	if engineErr != nil {
		return o.finishFailed(ctx, doc, req, state, interfaces.ActionPlan, startedAt, engineErr)
	}

	state.LastPlanAt = &now
	state.LastPlanDriftDetected = result.Summary.Add+result.Summary.Change+result.Summary.Destroy > 0
	// A stale lock means the last known plan state was untrustworthy; only a
	// plan that completes successfully restores trust.
	state.NeedsReplanAfterForceUnlock = false
	state.LastStatusUpdatedAt = now

	return o.finishSucceeded(ctx, doc, req, state, interfaces.ActionPlan, startedAt, result)
}

// Apply runs an apply for an environment. Preconditions are checked in order,
// each independently blocking: the force-unlock replan flag, production plan
// freshness, then the lock protocol.
func (o *Orchestrator) Apply(ctx context.Context, req RunRequest) (*RunResult, error) {
	doc, runner, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	state := doc.EnvironmentState(req.EnvironmentID)
	if state.NeedsReplanAfterForceUnlock {
		return nil, fmt.Errorf("environment %q: %w", req.EnvironmentID, ErrReplanRequired)
	}
	if req.EnvironmentID == config.DefaultProductionEnvironment {
		if state.LastPlanAt == nil || o.clock().Sub(*state.LastPlanAt) > o.cfg.ProdPlanMaxAge {
			return nil, fmt.Errorf("environment %q: %w", req.EnvironmentID, ErrProdPlanStale)
		}
	}
	if err := o.acquireLock(ctx, doc, req, state, interfaces.ActionApply); err != nil {
		return nil, err
	}

	startedAt := o.clock()
	engineCtx, cancel := context.WithTimeout(ctx, o.cfg.EngineTimeout)
	result, engineErr := runner.Apply(engineCtx)
	cancel()
	now := o.clock()

	if engineErr != nil {
		state.LastStatus = interfaces.StatusFailed
		state.LastStatusUpdatedAt = now
		return o.finishFailed(ctx, doc, req, state, interfaces.ActionApply, startedAt, engineErr)
	}

	state.LastApplyAt = &now
	state.LastStatus = interfaces.StatusHealthy
	state.LastStatusUpdatedAt = now

	if err := o.persistOutputs(doc, req.EnvironmentID, result.Outputs); err != nil {
		state.LastStatus = interfaces.StatusFailed
		return o.finishFailed(ctx, doc, req, state, interfaces.ActionApply, startedAt, err)
	}

	return o.finishSucceeded(ctx, doc, req, state, interfaces.ActionApply, startedAt, result)
}

// Destroy tears down an environment behind a two-step confirmation protocol.
// Regardless of the engine's reported status, the environment's last status
// becomes unknown afterwards, never healthy: no verified infrastructure is
// expected to remain.
func (o *Orchestrator) Destroy(ctx context.Context, req DestroyRequest) (*RunResult, error) {
	if err := validateDestroyConfirmation(req); err != nil {
		return nil, err
	}

	doc, runner, err := o.prepare(ctx, req.RunRequest)
	if err != nil {
		return nil, err
	}

	state := doc.EnvironmentState(req.EnvironmentID)
	if err := o.acquireLock(ctx, doc, req.RunRequest, state, interfaces.ActionDestroy); err != nil {
		return nil, err
	}

	startedAt := o.clock()
	engineCtx, cancel := context.WithTimeout(ctx, o.cfg.EngineTimeout)
	result, engineErr := runner.Destroy(engineCtx)
	cancel()
	now := o.clock()

	state.LastStatus = interfaces.StatusUnknown
	state.LastStatusUpdatedAt = now

	if engineErr != nil {
		return o.finishFailed(ctx, doc, req.RunRequest, state, interfaces.ActionDestroy, startedAt, engineErr)
	}

	state.LastDestroyAt = &now
	// Nothing cloud-managed remains after a successful destroy.
	if doc.EnvironmentOutputs != nil {
		delete(doc.EnvironmentOutputs, req.EnvironmentID)
	}

	return o.finishSucceeded(ctx, doc, req.RunRequest, state, interfaces.ActionDestroy, startedAt, result)
}

// Report runs a read-only drift check. It takes no lock and is safe to run
// concurrently with anything, including while a lock is held.
func (o *Orchestrator) Report(ctx context.Context, req RunRequest) (*RunResult, error) {
	doc, runner, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	state := doc.EnvironmentState(req.EnvironmentID)
	startedAt := o.clock()
	engineCtx, cancel := context.WithTimeout(ctx, o.cfg.EngineTimeout)
	report, engineErr := runner.Report(engineCtx)
	cancel()

	if engineErr != nil {
		return o.finishReport(ctx, doc, req, state, startedAt, &interfaces.ReportResult{
			Status:       interfaces.StatusFailed,
			ErrorMessage: engineErr.Error(),
			Logs:         engineLogs(engineErr),
		}, engineErr)
	}
	return o.finishReport(ctx, doc, req, state, startedAt, report, nil)
}

// ForceUnlockEnvironment clears an environment's lock unconditionally and
// marks the environment as needing a fresh plan. The flag survives new lock
// acquisitions and is cleared only by a plan that completes successfully.
func (o *Orchestrator) ForceUnlockEnvironment(ctx context.Context, project, environmentID string) error {
	doc, err := o.store.Load(ctx, project)
	if err != nil {
		return err
	}

	state := doc.EnvironmentState(environmentID)
	if state.ActiveLock != nil {
		o.logger.Warn("force-unlocking environment %s: clearing lock held by run %s since %s",
			environmentID, state.ActiveLock.RunID, state.ActiveLock.AcquiredAt.Format(time.RFC3339))
	}
	state.ActiveLock = nil
	state.NeedsReplanAfterForceUnlock = true
	state.LastStatusUpdatedAt = o.clock()

	return o.store.Save(ctx, project, doc)
}

// History lists the project's unexpired run records, optionally filtered by environment
func (o *Orchestrator) History(ctx context.Context, project, environmentID string) ([]*interfaces.DeploymentRunRecord, error) {
	doc, err := o.store.Load(ctx, project)
	if err != nil {
		return nil, err
	}
	// Expired records are pruned in memory only. Persisting here would race
	// with in-flight runs; the next lock-holding operation saves the pruned
	// history.
	return o.history.List(doc, environmentID), nil
}

// EnvironmentStates returns the persisted deployment state of every
// environment in a project, keyed by environment id
func (o *Orchestrator) EnvironmentStates(ctx context.Context, project string) (map[string]*interfaces.EnvironmentDeploymentState, error) {
	doc, err := o.store.Load(ctx, project)
	if err != nil {
		return nil, err
	}
	return doc.DeploymentState, nil
}

// prepare loads the project document, validates the environment's capability
// plan, and builds the engine runner for the target environment
func (o *Orchestrator) prepare(ctx context.Context, req RunRequest) (*interfaces.ProjectDocument, interfaces.EngineRunner, error) {
	doc, err := o.store.Load(ctx, req.Project)
	if err != nil {
		return nil, nil, err
	}

	envCfg, ok := doc.Environments[req.EnvironmentID]
	if !ok {
		return nil, nil, fmt.Errorf("environment %q is not declared in project %q", req.EnvironmentID, req.Project)
	}

	modules, err := capability.PlanModules(envCfg.Capabilities, envCfg.Constraints)
	if err != nil {
		return nil, nil, fmt.Errorf("capability plan for environment %q: %w", req.EnvironmentID, err)
	}

	runner := o.engines.ForEnvironment(req.WorkDir, req.EnvironmentID, doc.Backend, modules)
	return doc, runner, nil
}

// acquireLock applies the lock protocol and persists the acquired lock so
// concurrent sessions observe it immediately
func (o *Orchestrator) acquireLock(ctx context.Context, doc *interfaces.ProjectDocument, req RunRequest, state *interfaces.EnvironmentDeploymentState, action interfaces.DeploymentAction) error {
	now := o.clock()
	if err := checkLock(state.ActiveLock, req.EnvironmentID, now, o.cfg.LockStaleAfter); err != nil {
		return err
	}

	runID, err := uuid.GenerateUUID()
	if err != nil {
		return fmt.Errorf("failed to generate run id: %w", err)
	}
	state.ActiveLock = &interfaces.EnvironmentLock{
		RunID:      "run-" + runID,
		AcquiredAt: now,
		Action:     action,
	}

	// Persist against the latest document, not the snapshot from prepare, and
	// re-check the lock there: a concurrent session may have taken it since.
	target := doc
	if fresh, loadErr := o.store.Load(ctx, req.Project); loadErr == nil {
		if lockErr := checkLock(fresh.EnvironmentState(req.EnvironmentID).ActiveLock, req.EnvironmentID, now, o.cfg.LockStaleAfter); lockErr != nil {
			state.ActiveLock = nil
			return lockErr
		}
		fresh.DeploymentState[req.EnvironmentID] = state
		target = fresh
	}
	if err := o.store.Save(ctx, req.Project, target); err != nil {
		state.ActiveLock = nil
		return fmt.Errorf("failed to persist environment lock: %w", err)
	}
	o.logger.Info("acquired %s lock for environment %s (run %s)", action, req.EnvironmentID, state.ActiveLock.RunID)
	return nil
}

// checkLock applies the lock protocol to an observed lock
func checkLock(lock *interfaces.EnvironmentLock, environmentID string, now time.Time, staleAfter time.Duration) error {
	if lock == nil {
		return nil
	}
	if lock.Age(now) <= staleAfter {
		return fmt.Errorf("environment %q is locked by run %s: %w", environmentID, lock.RunID, ErrLockActive)
	}
	// Staleness is never auto-resolved: two processes must not both believe
	// they hold the lock. The operator force-unlocks explicitly.
	return fmt.Errorf("environment %q has a stale lock from run %s: %w", environmentID, lock.RunID, ErrLockStale)
}

// persistTarget re-loads the latest persisted document and folds this
// operation's environment changes into it. Saving the start-of-operation
// snapshot wholesale would roll back state, locks, and run records that
// concurrent operations on other environments persisted in the meantime.
func (o *Orchestrator) persistTarget(ctx context.Context, project string, snapshot *interfaces.ProjectDocument, environmentID string) *interfaces.ProjectDocument {
	fresh, err := o.store.Load(ctx, project)
	if err != nil {
		o.logger.Warn("failed to re-load project document for %s before save: %v", project, err)
		return snapshot
	}

	if fresh.DeploymentState == nil {
		fresh.DeploymentState = make(map[string]*interfaces.EnvironmentDeploymentState)
	}
	fresh.DeploymentState[environmentID] = snapshot.DeploymentState[environmentID]

	if outputs, ok := snapshot.EnvironmentOutputs[environmentID]; ok {
		if fresh.EnvironmentOutputs == nil {
			fresh.EnvironmentOutputs = make(map[string][]*interfaces.ResolvedOutput)
		}
		fresh.EnvironmentOutputs[environmentID] = outputs
	} else if fresh.EnvironmentOutputs != nil {
		// This operation holds the environment lock, so absence in the
		// snapshot means a destroy dropped the outputs.
		delete(fresh.EnvironmentOutputs, environmentID)
	}
	return fresh
}

// finishSucceeded records a successful run, releases the lock, and persists the document
func (o *Orchestrator) finishSucceeded(ctx context.Context, doc *interfaces.ProjectDocument, req RunRequest, state *interfaces.EnvironmentDeploymentState, action interfaces.DeploymentAction, startedAt time.Time, result *interfaces.EngineResult) (*RunResult, error) {
	summary := result.Summary
	state.ActiveLock = nil
	target := o.persistTarget(ctx, req.Project, doc, req.EnvironmentID)
	record, err := o.history.Record(target, history.RecordParams{
		EnvironmentID: req.EnvironmentID,
		Action:        action,
		Status:        interfaces.RunStatusSuccess,
		Actor:         req.Actor,
		Summary:       &summary,
		Logs:          result.Logs,
		StartedAt:     startedAt,
		FinishedAt:    o.clock(),
	})
	if err != nil {
		o.logger.Error("failed to append run history: %v", err)
	}

	if err := o.store.Save(ctx, req.Project, target); err != nil {
		return nil, fmt.Errorf("failed to persist deployment state: %w", err)
	}

	return &RunResult{
		Action:            action,
		Status:            interfaces.RunStatusSuccess,
		Summary:           &summary,
		EnvironmentStatus: state.LastStatus,
		Record:            record,
	}, nil
}

// finishFailed records a failed run, releases the lock even on cancellation,
// persists the document, and returns the engine error. A cancelled operation
// must never leave a phantom lock behind.
func (o *Orchestrator) finishFailed(ctx context.Context, doc *interfaces.ProjectDocument, req RunRequest, state *interfaces.EnvironmentDeploymentState, action interfaces.DeploymentAction, startedAt time.Time, cause error) (*RunResult, error) {
	state.ActiveLock = nil
	saveCtx := context.WithoutCancel(ctx)
	target := o.persistTarget(saveCtx, req.Project, doc, req.EnvironmentID)
	if _, err := o.history.Record(target, history.RecordParams{
		EnvironmentID: req.EnvironmentID,
		Action:        action,
		Status:        interfaces.RunStatusFailed,
		Actor:         req.Actor,
		Logs:          engineLogs(cause),
		StartedAt:     startedAt,
		FinishedAt:    o.clock(),
	}); err != nil {
		o.logger.Error("failed to append run history: %v", err)
	}

	if saveErr := o.store.Save(saveCtx, req.Project, target); saveErr != nil {
		o.logger.Error("failed to persist deployment state after failed %s: %v", action, saveErr)
	}

	o.logger.Error("%s failed for environment %s: %v", action, req.EnvironmentID, cause)
	return nil, cause
}

// finishReport persists report results without touching any lock
func (o *Orchestrator) finishReport(ctx context.Context, doc *interfaces.ProjectDocument, req RunRequest, state *interfaces.EnvironmentDeploymentState, startedAt time.Time, report *interfaces.ReportResult, cause error) (*RunResult, error) {
	now := o.clock()
	state.LastReportedAt = &now
	state.LastStatus = report.Status
	state.LastPlanDriftDetected = report.Status == interfaces.StatusDrifted
	state.LastStatusUpdatedAt = now

	runStatus := interfaces.RunStatusSuccess
	logs := report.Logs
	if report.Status == interfaces.StatusFailed {
		runStatus = interfaces.RunStatusFailed
		if report.ErrorMessage != "" {
			logs = append(logs, report.ErrorMessage)
		}
	}

	// Reports run without the environment lock, so only the status fields are
	// copied onto the latest document. Replacing the environment state
	// wholesale could erase a lock a concurrent run holds.
	saveCtx := context.WithoutCancel(ctx)
	target := doc
	if fresh, loadErr := o.store.Load(saveCtx, req.Project); loadErr == nil {
		freshState := fresh.EnvironmentState(req.EnvironmentID)
		freshState.LastReportedAt = state.LastReportedAt
		freshState.LastStatus = state.LastStatus
		freshState.LastPlanDriftDetected = state.LastPlanDriftDetected
		freshState.LastStatusUpdatedAt = state.LastStatusUpdatedAt
		target = fresh
	} else {
		o.logger.Warn("failed to re-load project document for %s before save: %v", req.Project, loadErr)
	}

	record, err := o.history.Record(target, history.RecordParams{
		EnvironmentID: req.EnvironmentID,
		Action:        interfaces.ActionReport,
		Status:        runStatus,
		Actor:         req.Actor,
		Logs:          logs,
		StartedAt:     startedAt,
		FinishedAt:    now,
	})
	if err != nil {
		o.logger.Error("failed to append run history: %v", err)
	}

	if err := o.store.Save(saveCtx, req.Project, target); err != nil {
		return nil, fmt.Errorf("failed to persist deployment state: %w", err)
	}
	if cause != nil {
		return nil, cause
	}

	return &RunResult{
		Action:            interfaces.ActionReport,
		Status:            runStatus,
		EnvironmentStatus: report.Status,
		Record:            record,
	}, nil
}

// persistOutputs resolves the engine's provider outputs against the
// environment's declared outputs and stores the result
func (o *Orchestrator) persistOutputs(doc *interfaces.ProjectDocument, environmentID string, providerOutputs map[string]interface{}) error {
	envCfg := doc.Environments[environmentID]
	if envCfg == nil || len(envCfg.Outputs) == 0 {
		return nil
	}

	resolved, err := capability.ResolveOutputs(envCfg.Outputs, providerOutputs)
	if err != nil {
		return fmt.Errorf("output resolution for environment %q: %w", environmentID, err)
	}

	if doc.EnvironmentOutputs == nil {
		doc.EnvironmentOutputs = make(map[string][]*interfaces.ResolvedOutput)
	}
	doc.EnvironmentOutputs[environmentID] = resolved
	return nil
}

// validateDestroyConfirmation enforces the two-step destroy confirmation protocol
func validateDestroyConfirmation(req DestroyRequest) error {
	if req.ConfirmEnvironmentID != req.EnvironmentID {
		return fmt.Errorf("confirmation environment %q does not match target %q: %w",
			req.ConfirmEnvironmentID, req.EnvironmentID, ErrDestroyConfirmationInvalid)
	}
	if req.ConfirmPhrase != "destroy "+req.EnvironmentID {
		return fmt.Errorf("environment %q: %w", req.EnvironmentID, ErrDestroyConfirmationInvalid)
	}
	if req.EnvironmentID == config.DefaultProductionEnvironment && req.ConfirmProdPhrase != "destroy prod" {
		return fmt.Errorf("environment %q: %w", req.EnvironmentID, ErrProdDestroySecondConfirmRequired)
	}
	return nil
}

// engineLogs extracts captured engine output from a failure for run history
func engineLogs(err error) []string {
	if engErr, ok := engine.IsEngineError(err); ok && engErr.Stderr != "" {
		return []string{engErr.Error(), engErr.Stderr}
	}
	return []string{err.Error()}
}
