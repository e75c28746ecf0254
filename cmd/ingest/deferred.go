package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"paper-trail/internal/infra/adapter/persistence/postgres"
	"paper-trail/internal/resilience/circuitbreaker"
	"paper-trail/internal/usecase/query"

	"github.com/spf13/cobra"
)

func deferredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deferred",
		Short: "Inspect records waiting for a later run",
	}

	var (
		kind  string
		limit int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "Print deferred records as JSON lines, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default()
			database, err := openDatabase(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer database.Close()

			store := postgres.NewStore(circuitbreaker.NewDBCircuitBreaker(database))
			records, err := query.NewService(store.Repos()).ListDeferred(cmd.Context(), kind, limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, rec := range records {
				if err := enc.Encode(rec); err != nil {
					return fmt.Errorf("write record: %w", err)
				}
			}
			return nil
		},
	}
	list.Flags().StringVar(&kind, "kind", "", "Only records of this kind, e.g. DONATION")
	list.Flags().IntVar(&limit, "limit", 100, "Maximum number of records")

	cmd.AddCommand(list)
	return cmd
}
