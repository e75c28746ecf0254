package main

import (
	"log/slog"

	"paper-trail/internal/infra/db"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or drop the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Create every table and index that does not exist yet",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				logger := slog.Default()
				database, err := openDatabase(cmd.Context(), logger)
				if err != nil {
					return err
				}
				defer database.Close()

				if err := db.MigrateUp(cmd.Context(), database); err != nil {
					return err
				}
				logger.Info("schema migrated up")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Drop every table, including the identity mappings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				logger := slog.Default()
				database, err := openDatabase(cmd.Context(), logger)
				if err != nil {
					return err
				}
				defer database.Close()

				if err := db.MigrateDown(cmd.Context(), database); err != nil {
					return err
				}
				logger.Warn("schema dropped")
				return nil
			},
		},
	)

	return cmd
}
