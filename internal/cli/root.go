package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/susu3304/settlerelay/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand creates the root command. Without a subcommand it serves.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "settlerelay",
		Short: "Relay signed game-round settlements to LootLocker",
		Long: "settlerelay accepts signed credit/debit requests for game rounds, rejects stale,\n" +
			"forged and duplicate ones, and applies the rest to LootLocker wallet balances.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupWithLevel(logging.LevelFromString(opts.LogLevel))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config (default $CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSignCommand())

	return cmd
}
