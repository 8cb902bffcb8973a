package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/retrieval"
)

func newSearchCommand(open Opener) *cobra.Command {
	var (
		topK   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <namespace> <query>",
		Short: "Semantic search within one namespace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, open, func(ctx context.Context, rt *Runtime) error {
				opts := &retrieval.SearchOptions{}
				if cmd.Flags().Changed("top-k") {
					opts.TopK = &topK
				}

				matches, err := rt.Core.Retrieval.Search(ctx, args[0], args[1], opts)
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}
				if asJSON {
					return printJSON(cmd, matches)
				}

				if len(matches) == 0 {
					cmd.Println("No results found.")
					return nil
				}
				for i, m := range matches {
					cmd.Printf("[%d] %s #%d (%.3f)\n    %s\n", i+1, m.DocumentID, m.ChunkIndex, m.Score, m.ChunkText)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", retrieval.DefaultTopK, "maximum number of chunks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}
