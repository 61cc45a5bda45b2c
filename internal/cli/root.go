package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bulatfbi/coffee-bot/internal/config"
	"github.com/bulatfbi/coffee-bot/internal/logger"
)

// env is what every command needs: configuration and a logger.
type env struct {
	cfg config.Config
	log *zap.Logger
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log}, nil
}

// NewRootCommand builds the coffee-bot command tree. Without a subcommand it
// runs the bot.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "coffee-bot",
		Short:         "Telegram bot that rotates coffee machine duty",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newBatchCommand())
	return root
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		// Logger may not exist yet; write to stderr directly.
		_, _ = os.Stderr.WriteString("coffee-bot: " + err.Error() + "\n")
		os.Exit(1)
	}
}
