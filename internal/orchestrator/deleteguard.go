package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/appforge/appforge/internal/interfaces"
)

// DeleteBlock is one reason project deletion is blocked, tied to an environment
type DeleteBlock struct {
	EnvironmentID string `json:"environmentId"`
	Reason        string `json:"reason"`
	Remediation   string `json:"remediation"`
}

// DeleteGuardResult is the verdict on whether a project may be deleted
type DeleteGuardResult struct {
	Allowed bool          `json:"allowed"`
	Blocks  []DeleteBlock `json:"blocks,omitempty"`
}

// EvaluateProjectDeleteGuard blocks deletion of the local project record while
// cloud resources it owns may still exist. Deleting the record would silently
// orphan billable, potentially security-sensitive infrastructure.
func (o *Orchestrator) EvaluateProjectDeleteGuard(ctx context.Context, project string) (*DeleteGuardResult, error) {
	doc, err := o.store.Load(ctx, project)
	if err != nil {
		return nil, err
	}

	var blocks []DeleteBlock
	for _, environmentID := range referencedEnvironments(doc) {
		blocks = append(blocks, evaluateEnvironment(doc, environmentID)...)
	}
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].EnvironmentID < blocks[j].EnvironmentID
	})

	return &DeleteGuardResult{
		Allowed: len(blocks) == 0,
		Blocks:  blocks,
	}, nil
}

// evaluateEnvironment collects every deletion blocker for one environment
func evaluateEnvironment(doc *interfaces.ProjectDocument, environmentID string) []DeleteBlock {
	var blocks []DeleteBlock

	// An active lock blocks regardless of staleness: an in-flight or
	// abandoned run must be resolved before the project record can go.
	if state := doc.DeploymentState[environmentID]; state != nil && state.ActiveLock != nil {
		blocks = append(blocks, DeleteBlock{
			EnvironmentID: environmentID,
			Reason:        "a deployment run is in flight or was abandoned while holding the environment lock",
			Remediation:   "wait for the run to finish, or force-unlock and resolve the environment first",
		})
	}

	if hasUnreclaimedApply(doc, environmentID) {
		blocks = append(blocks, DeleteBlock{
			EnvironmentID: environmentID,
			Reason:        "the environment has a successful apply not yet followed by a successful destroy",
			Remediation:   "destroy the environment before deleting the project",
		})
	}

	for _, output := range doc.EnvironmentOutputs[environmentID] {
		if output.Source == interfaces.OutputSourceProvider {
			blocks = append(blocks, DeleteBlock{
				EnvironmentID: environmentID,
				Reason:        "recorded provider outputs imply live cloud-managed material for this environment",
				Remediation:   "destroy the environment to reclaim its cloud resources before deleting the project",
			})
			break
		}
	}

	return blocks
}

// hasUnreclaimedApply reports whether an environment's most recent successful
// apply lacks a later successful destroy
func hasUnreclaimedApply(doc *interfaces.ProjectDocument, environmentID string) bool {
	var lastApply, lastDestroy time.Time
	for _, record := range doc.DeploymentRunHistory {
		if record.EnvironmentID != environmentID || record.Status != interfaces.RunStatusSuccess {
			continue
		}
		switch record.Action {
		case interfaces.ActionApply:
			if record.CreatedAt.After(lastApply) {
				lastApply = record.CreatedAt
			}
		case interfaces.ActionDestroy:
			if record.CreatedAt.After(lastDestroy) {
				lastDestroy = record.CreatedAt
			}
		}
	}

	// Run history is retention-bounded, so fall back to persisted state
	// timestamps for applies older than the retention window.
	if state := doc.DeploymentState[environmentID]; state != nil {
		if state.LastApplyAt != nil && state.LastApplyAt.After(lastApply) {
			lastApply = *state.LastApplyAt
		}
		if state.LastDestroyAt != nil && state.LastDestroyAt.After(lastDestroy) {
			lastDestroy = *state.LastDestroyAt
		}
	}

	return !lastApply.IsZero() && !lastDestroy.After(lastApply)
}

// referencedEnvironments unions every environment id referenced by deployment
// state, recorded outputs, or run history
func referencedEnvironments(doc *interfaces.ProjectDocument) []string {
	seen := make(map[string]bool)
	for environmentID := range doc.DeploymentState {
		seen[environmentID] = true
	}
	for environmentID := range doc.EnvironmentOutputs {
		seen[environmentID] = true
	}
	for _, record := range doc.DeploymentRunHistory {
		seen[record.EnvironmentID] = true
	}

	ids := make([]string, 0, len(seen))
	for environmentID := range seen {
		ids = append(ids, environmentID)
	}
	sort.Strings(ids)
	return ids
}
