package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/app"
)

func newServeCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the operator API, the MCP endpoint and the ingestion worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withRuntime(cmd, open, func(ctx context.Context, rt *Runtime) error {
				a, err := app.New(rt.Config, rt.Core)
				if err != nil {
					return err
				}
				return a.Run(ctx)
			})
		},
	}
}
