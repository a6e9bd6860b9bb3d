//nolint:forbidigo // CLI commands need fmt.Print* for user output
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/appforge/appforge/internal/interfaces"
	"github.com/appforge/appforge/internal/orchestrator"
)

func newDeployCommand() *cobra.Command {
	var projectName string
	var workDir string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Plan, apply, destroy, and report on environment deployments",
	}

	cmd.PersistentFlags().StringVar(&projectName, "project", "", "Project name (required)")
	cmd.PersistentFlags().StringVar(&workDir, "workdir", "", "IaC workspace directory (default ./infra/<environment>)")
	_ = cmd.MarkPersistentFlagRequired("project")

	cmd.AddCommand(
		newDeployPlanCommand(&projectName, &workDir),
		newDeployApplyCommand(&projectName, &workDir),
		newDeployDestroyCommand(&projectName, &workDir),
		newDeployReportCommand(&projectName, &workDir),
		newDeployUnlockCommand(&projectName),
		newDeployHistoryCommand(&projectName),
	)
	return cmd
}

// runRequest assembles the orchestrator request for one environment
func runRequest(projectName, workDir, environmentID string) orchestrator.RunRequest {
	if workDir == "" {
		workDir = defaultWorkDir(environmentID)
	}
	return orchestrator.RunRequest{
		Project:       projectName,
		EnvironmentID: environmentID,
		WorkDir:       workDir,
		Actor:         currentActor(),
	}
}

func newDeployPlanCommand(projectName, workDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [environment]",
		Short: "Plan pending infrastructure changes for an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildComponents()
			if err != nil {
				return err
			}
			if err := checkDeploymentEnabled(cmd.Context(), c, *projectName); err != nil {
				return err
			}

			result, err := c.Orchestrator.Plan(cmd.Context(), runRequest(*projectName, *workDir, args[0]))
			if err != nil {
				return err
			}
			printSummary("Plan", args[0], result.Summary)
			return nil
		},
	}
}

func newDeployApplyCommand(projectName, workDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "apply [environment]",
		Short: "Apply the planned infrastructure changes for an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildComponents()
			if err != nil {
				return err
			}
			if err := checkDeploymentEnabled(cmd.Context(), c, *projectName); err != nil {
				return err
			}

			result, err := c.Orchestrator.Apply(cmd.Context(), runRequest(*projectName, *workDir, args[0]))
			if err != nil {
				return err
			}
			printSummary("Apply", args[0], result.Summary)
			return nil
		},
	}
}

func newDeployDestroyCommand(projectName, workDir *string) *cobra.Command {
	var confirmEnv string
	var confirmPhrase string
	var confirmProdPhrase string

	cmd := &cobra.Command{
		Use:   "destroy [environment]",
		Short: "Destroy an environment's infrastructure (requires confirmation phrases)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildComponents()
			if err != nil {
				return err
			}
			if err := checkDeploymentEnabled(cmd.Context(), c, *projectName); err != nil {
				return err
			}

			result, err := c.Orchestrator.Destroy(cmd.Context(), orchestrator.DestroyRequest{
				RunRequest:           runRequest(*projectName, *workDir, args[0]),
				ConfirmEnvironmentID: confirmEnv,
				ConfirmPhrase:        confirmPhrase,
				ConfirmProdPhrase:    confirmProdPhrase,
			})
			if err != nil {
				return err
			}
			printSummary("Destroy", args[0], result.Summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&confirmEnv, "confirm-env", "", "Environment id, repeated to confirm the target")
	cmd.Flags().StringVar(&confirmPhrase, "confirm", "", "Confirmation phrase: 'destroy <environment>'")
	cmd.Flags().StringVar(&confirmProdPhrase, "confirm-prod", "", "Second confirmation phrase for prod: 'destroy prod'")
	return cmd
}

func newDeployReportCommand(projectName, workDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "report [environment]",
		Short: "Run a read-only drift report for an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildComponents()
			if err != nil {
				return err
			}
			if err := checkDeploymentEnabled(cmd.Context(), c, *projectName); err != nil {
				return err
			}

			result, err := c.Orchestrator.Report(cmd.Context(), runRequest(*projectName, *workDir, args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("Environment %s: %s\n", args[0], result.EnvironmentStatus)
			return nil
		},
	}
}

func newDeployUnlockCommand(projectName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock [environment]",
		Short: "Force-unlock an environment after an abandoned run",
		Long: `Force-unlock clears the environment lock unconditionally and marks the
environment as needing a fresh plan before any apply.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildComponents()
			if err != nil {
				return err
			}
			if err := c.Orchestrator.ForceUnlockEnvironment(cmd.Context(), *projectName, args[0]); err != nil {
				return err
			}
			fmt.Printf("Environment %s unlocked; run a plan before the next apply.\n", args[0])
			return nil
		},
	}
}

func newDeployHistoryCommand(projectName *string) *cobra.Command {
	var environmentID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the project's deployment run history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := buildComponents()
			if err != nil {
				return err
			}
			records, err := c.Orchestrator.History(cmd.Context(), *projectName, environmentID)
			if err != nil {
				return err
			}
			printHistory(records)
			return nil
		},
	}

	cmd.Flags().StringVar(&environmentID, "environment", "", "Filter by environment id")
	return cmd
}

// printSummary renders a change summary for one completed operation
func printSummary(action, environmentID string, summary *interfaces.ChangeSummary) {
	if summary == nil {
		fmt.Printf("%s complete for environment %s.\n", action, environmentID)
		return
	}
	fmt.Printf("%s complete for environment %s: %d to add, %d to change, %d to destroy.\n",
		action, environmentID, summary.Add, summary.Change, summary.Destroy)
}

// printHistory renders run records as a table
func printHistory(records []*interfaces.DeploymentRunRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tENVIRONMENT\tACTION\tSTATUS\tACTOR")
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			record.CreatedAt.Format("2006-01-02 15:04:05"),
			record.EnvironmentID, record.Action, record.Status, record.Actor)
	}
	_ = w.Flush()
}
