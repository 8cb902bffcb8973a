// Package cli is the command line surface: the long running server plus
// one-shot operator commands against the same pipeline.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/app"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/config"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/logger"
)

// Runtime is a bootstrapped pipeline and the function that releases it.
type Runtime struct {
	Config *config.Config
	Core   *app.Core
	Close  func()
}

// Opener builds a Runtime. Commands call it lazily so that --help and
// argument errors never touch infrastructure.
type Opener func(ctx context.Context) (*Runtime, error)

// Bootstrapped opens the real dependencies from the environment.
func Bootstrapped(ctx context.Context) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return nil, err
	}
	core := app.NewCore(cfg, deps, nil, slog.Default())
	return &Runtime{
		Config: cfg,
		Core:   core,
		Close: func() {
			core.Close()
			deps.Close()
		},
	}, nil
}

func NewRootCommand(open Opener) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "caso",
		Short:         "Document ingestion and semantic retrieval",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid --log-level %q", logLevel)
			}
			slog.SetDefault(logger.New(cmd.ErrOrStderr(), level))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "debug, info, warn or error")

	root.AddCommand(
		newServeCommand(open),
		newSearchCommand(open),
		newIngestCommand(open),
		newDeleteDocumentCommand(open),
		newDeleteNamespaceCommand(open),
		newRetryJobCommand(open),
		newStatsCommand(open),
	)
	return root
}

// withRuntime opens the runtime, runs fn and releases it.
func withRuntime(cmd *cobra.Command, open Opener, fn func(context.Context, *Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := open(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
