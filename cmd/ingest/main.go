// Package main is the ingest CLI. It runs the resolution pipeline once or on
// a schedule, applies the schema and lists deferred records.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"paper-trail/internal/observability/logging"

	"github.com/spf13/cobra"
)

const appName = "ingest"

// Version is overridden at build time with -ldflags "-X main.Version=…".
var Version = "dev"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var textLogs bool

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Entity resolution pipeline for legislators, bills, votes and donations",
		Long: `ingest reads the local bulk files listed in the sources manifest,
resolves legislators across bioguide, ICPSR and FEC identifiers, links votes
and donations to them and loads the result into PostgreSQL.

Records that cannot be resolved yet are kept in the deferred side-channel and
retried on the next run.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.NewLogger()
			if textLogs {
				logger = logging.NewTextLogger()
			}
			slog.SetDefault(logger)
		},
	}

	cmd.PersistentFlags().BoolVar(&textLogs, "text-logs", false, "Log human-readable text to stderr instead of JSON")

	cmd.AddCommand(
		runCmd(),
		workerCmd(),
		migrateCmd(),
		deferredCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}
