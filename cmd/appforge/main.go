package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"    //nolint:gochecknoglobals // Build-time commit info
	date    = "unknown" //nolint:gochecknoglobals // Build-time date info
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "appforge",
		Short: "Scaffold applications and manage their cloud deployment lifecycle",
		Long: `Appforge scaffolds applications and drives their cloud deployments through
a containerized infrastructure-as-code engine, with per-environment locking,
confirmation-gated destroys, and an auditable run history.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newDeployCommand(),
		newWatchCommand(),
		newServerCommand(),
		newBackendCommand(),
		newDeleteCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
