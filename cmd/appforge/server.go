package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/appforge/appforge/internal/apiserver"
)

func newServerCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the read-only deployment status API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := buildComponents()
			if err != nil {
				return err
			}

			server, err := apiserver.NewServer(c.Orchestrator, addr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				return server.Shutdown(context.Background())
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8264", "Listen address for the status API")
	return cmd
}
