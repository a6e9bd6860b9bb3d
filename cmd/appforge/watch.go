package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/appforge/appforge/internal/orchestrator"
)

func newWatchCommand() *cobra.Command {
	var projectName string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch [environment...]",
		Short: "Continuously report on environment drift",
		Long: `Watch repeatedly runs a read-only drift report for each named environment.
A failing cycle is logged and never stops the loop.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildComponents()
			if err != nil {
				return err
			}
			if err := checkDeploymentEnabled(cmd.Context(), c, projectName); err != nil {
				return err
			}

			targets := make([]orchestrator.WatchTarget, len(args))
			for i, environmentID := range args {
				targets[i] = orchestrator.WatchTarget{
					EnvironmentID: environmentID,
					WorkDir:       defaultWorkDir(environmentID),
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = c.Orchestrator.Watch(ctx, projectName, targets, interval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&projectName, "project", "", "Project name (required)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Refresh interval (default from APPFORGE_WATCH_INTERVAL)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
