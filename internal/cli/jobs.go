package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
)

func newRetryJobCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "retry-job <job-id>",
		Short: "Requeue a failed ingestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, open, func(ctx context.Context, rt *Runtime) error {
				if err := rt.Core.Jobs.Retry(ctx, args[0]); err != nil {
					return err
				}
				cmd.Printf("requeued %s\n", args[0])
				return nil
			})
		},
	}
}

func newStatsCommand(open Opener) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Document counts by status, indexed chunks and failed jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, open, func(ctx context.Context, rt *Runtime) error {
				snap, err := rt.Core.Stats.Collect(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, snap)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, row := range []struct {
					label string
					value int
				}{
					{"documents", snap.Documents},
					{"  pending", snap.ByStatus[document.StatusPending]},
					{"  processing", snap.ByStatus[document.StatusProcessing]},
					{"  completed", snap.ByStatus[document.StatusCompleted]},
					{"  failed", snap.ByStatus[document.StatusFailed]},
					{"indexed chunks", snap.IndexedChunks},
					{"failed jobs", snap.FailedJobs},
				} {
					if _, err := fmt.Fprintf(tw, "%s\t%d\n", row.label, row.value); err != nil {
						return err
					}
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
