package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bulatfbi/coffee-bot/internal/app"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the batch scheduler and the HTTP probes",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	// Ensure logger flush; ignore sync error (common on some platforms).
	defer func() { _ = e.log.Sync() }()

	application, err := app.New(cmd.Context(), e.cfg, e.log)
	if err != nil {
		return fmt.Errorf("app init failed: %w", err)
	}
	return application.Run(cmd.Context())
}
