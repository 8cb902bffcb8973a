package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
)

func newIngestCommand(open Opener) *cobra.Command {
	var (
		text  string
		name  string
		queue bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <namespace> [file]",
		Short: "Index a text file or --text into a namespace",
		Long: `Registers a document and indexes it in this process, printing the final
status and chunk count. With --queue the document is handed to the
ingestion workers instead.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace := args[0]
			if len(args) == 2 {
				data, err := os.ReadFile(args[1])
				if err != nil {
					return err
				}
				text = string(data)
				if name == "" {
					name = filepath.Base(args[1])
				}
			}
			if text == "" {
				return errors.New("a file or --text is required")
			}

			return withRuntime(cmd, open, func(ctx context.Context, rt *Runtime) error {
				req := document.EnqueueRequest{NamespaceID: namespace, DisplayName: name, RawText: text}
				if queue {
					doc, err := rt.Core.Documents.Enqueue(ctx, req)
					if err != nil {
						return err
					}
					cmd.Printf("%s %s\n", doc.ID, doc.Status)
					return nil
				}

				doc, err := rt.Core.Documents.Register(ctx, req)
				if err != nil {
					return err
				}
				out := rt.Core.Orchestrator.Ingest(ctx, doc.ID, namespace, text)
				if out.Err != nil && out.Status == "" {
					return out.Err
				}
				cmd.Printf("%s %s chunks=%d\n", doc.ID, out.Status, out.ChunkCount)
				if out.Status == document.StatusFailed {
					return fmt.Errorf("ingestion failed: %w", out.Err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "raw text to index instead of a file")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&queue, "queue", false, "publish to the ingestion queue instead of indexing inline")
	return cmd
}

func newDeleteDocumentCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-document <namespace> <document-id>",
		Short: "Remove a document and its vectors",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, open, func(ctx context.Context, rt *Runtime) error {
				if err := rt.Core.Documents.Delete(ctx, args[0], args[1]); err != nil {
					return err
				}
				cmd.Printf("deleted %s\n", args[1])
				return nil
			})
		},
	}
}

func newDeleteNamespaceCommand(open Opener) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-namespace <namespace>",
		Short: "Drop a namespace's collection and every document in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete a namespace without --yes")
			}
			return withRuntime(cmd, open, func(ctx context.Context, rt *Runtime) error {
				if err := rt.Core.Documents.DeleteNamespace(ctx, args[0]); err != nil {
					return err
				}
				cmd.Printf("deleted namespace %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
