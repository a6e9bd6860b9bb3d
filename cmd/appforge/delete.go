//nolint:forbidigo // CLI commands need fmt.Print* for user output
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newDeleteCommand() *cobra.Command {
	var projectName string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the local project record",
		Long: `Delete removes the local project record. Deletion is refused while any
environment may still own live cloud resources: an active lock, an apply not
yet followed by a destroy, or recorded provider outputs all block it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := buildComponents()
			if err != nil {
				return err
			}

			result, err := c.Orchestrator.EvaluateProjectDeleteGuard(cmd.Context(), projectName)
			if err != nil {
				return err
			}
			if !result.Allowed {
				fmt.Fprintf(os.Stderr, "Project %q cannot be deleted:\n", projectName)
				for _, block := range result.Blocks {
					fmt.Fprintf(os.Stderr, "  environment %s: %s\n      remediation: %s\n",
						block.EnvironmentID, block.Reason, block.Remediation)
				}
				return fmt.Errorf("deletion blocked by %d environment(s)", len(result.Blocks))
			}

			if err := c.Store.Delete(cmd.Context(), projectName); err != nil {
				return err
			}
			fmt.Printf("Project %q deleted.\n", projectName)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectName, "project", "", "Project name (required)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
