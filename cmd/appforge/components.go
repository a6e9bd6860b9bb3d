package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/appforge/appforge/internal/config"
	"github.com/appforge/appforge/internal/engine"
	"github.com/appforge/appforge/internal/executor"
	"github.com/appforge/appforge/internal/gate"
	"github.com/appforge/appforge/internal/history"
	"github.com/appforge/appforge/internal/orchestrator"
	"github.com/appforge/appforge/internal/project"
)

// components bundles the wired orchestration core for CLI commands
type components struct {
	Config       *config.Config
	Store        *project.FileStore
	Orchestrator *orchestrator.Orchestrator
}

// buildComponents wires the orchestration core from environment configuration
func buildComponents() (*components, error) {
	cfg := config.LoadConfig()
	if cfg.ProjectDir == "" {
		return nil, fmt.Errorf("no project directory available: set APPFORGE_PROJECT_DIR")
	}

	store := project.NewFileStore(cfg.ProjectDir)
	engines := engine.NewFactory(executor.NewCommandExecutor(), cfg.ContainerRuntime, cfg.EngineImage)

	orch, err := orchestrator.NewOrchestrator(orchestrator.OrchestratorConfig{
		Store:   store,
		Engines: engines,
		History: history.NewStore(cfg.RunHistoryRetention),
		Config:  cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build orchestrator: %w", err)
	}

	return &components{
		Config:       cfg,
		Store:        store,
		Orchestrator: orch,
	}, nil
}

// checkDeploymentEnabled evaluates the enablement gate once at session start.
// Deployment commands refuse to run with a partially-configured backend.
func checkDeploymentEnabled(ctx context.Context, c *components, projectName string) error {
	doc, err := c.Store.Load(ctx, projectName)
	if err != nil {
		return err
	}

	result := gate.Evaluate(doc)
	if result.Allowed {
		return nil
	}

	fmt.Fprintf(os.Stderr, "Deployment is not enabled for project %q:\n", projectName)
	for _, issue := range result.Issues {
		fmt.Fprintf(os.Stderr, "  [%s] %s\n      remediation: %s\n", issue.Code, issue.Message, issue.Remediation)
	}
	return fmt.Errorf("%d deployment precondition(s) failed", len(result.Issues))
}

// currentActor identifies the operator for run history records
func currentActor() string {
	if actor := os.Getenv("APPFORGE_ACTOR"); actor != "" {
		return actor
	}
	return os.Getenv("USER")
}

// defaultWorkDir is where the scaffolded IaC workspace for an environment lives
func defaultWorkDir(environmentID string) string {
	return filepath.Join(".", "infra", environmentID)
}
