package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bulatfbi/coffee-bot/internal/app"
	"github.com/bulatfbi/coffee-bot/internal/rotation"
)

func newBatchCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:       "batch {morning|evening}",
		Short:     "Run one rotation batch now",
		Long:      "Runs the morning (accrue, select, notify) or evening (clear declines, settle, send home) batch once.\nThe persisted rotation flag is honoured unless --force is given.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{rotation.BatchMorning, rotation.BatchEvening},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()

			application, err := app.New(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return fmt.Errorf("app init failed: %w", err)
			}
			defer application.Close()

			name := args[0]
			if !force {
				enabled, err := application.Store().RotationEnabled(cmd.Context())
				if err != nil {
					return fmt.Errorf("read rotation flag: %w", err)
				}
				if !enabled {
					e.log.Info("rotation disabled; batch skipped", zap.String("batch", name))
					return nil
				}
			}
			return application.Engine().RunBatch(cmd.Context(), name)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "run even if rotation is disabled")
	return cmd
}
