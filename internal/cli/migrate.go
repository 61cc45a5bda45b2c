package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bulatfbi/coffee-bot/internal/store"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all up migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigration(cmd, "up", store.MigrateUp)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations (drops every table)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigration(cmd, "down", store.MigrateDown)
			},
		},
	)
	return cmd
}

func runMigration(cmd *cobra.Command, direction string, fn func(db *sql.DB) error) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	db, err := store.OpenDB(cmd.Context(), e.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if err := fn(db); err != nil {
		return fmt.Errorf("migrate %s failed: %w", direction, err)
	}
	e.log.Info("migrations applied", zap.String("direction", direction), zap.String("path", e.cfg.DBPath))
	return nil
}
