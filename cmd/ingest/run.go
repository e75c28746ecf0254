package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"paper-trail/internal/config"
	"paper-trail/internal/observability/tracing"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var (
		dryRun   bool
		manifest string
		summary  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline pass",
		Long: `run executes every stage once: roster, candidates, Voteview members,
bills, votes and donations. The run summary is recorded in ingest_runs and,
with --summary, printed to stdout as JSON.

The command exits non-zero when the run fails or is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default()
			cfg := config.LoadPipelineConfig(logger, nil)
			if cmd.Flags().Changed("dry-run") {
				cfg.DryRun = dryRun
			}
			if manifest != "" {
				cfg.ManifestPath = manifest
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing := tracing.Init(1)
			defer func() { _ = shutdownTracing(context.Background()) }()

			runner, cleanup, err := newRunner(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			result, runErr := runner.Run(ctx)
			if summary && result != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return fmt.Errorf("write summary: %w", err)
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Load into memory instead of PostgreSQL (overrides DRY_RUN)")
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "Sources manifest path (overrides SOURCES_MANIFEST)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print the run summary as JSON")

	return cmd
}
