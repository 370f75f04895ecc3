package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/susu3304/settlerelay/internal/api"
	"github.com/susu3304/settlerelay/internal/config"
	"github.com/susu3304/settlerelay/internal/lootlocker"
	"github.com/susu3304/settlerelay/internal/replay"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the settlement relay HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// newAPI wires the relay from configuration.
func newAPI(cfg *config.Config) *api.API {
	client := lootlocker.NewClient(lootlocker.Config{
		BaseURL:    cfg.LootLockerURL,
		APIVersion: cfg.LootLockerVersion,
		Timeout:    cfg.UpstreamTimeout,
	})
	sessions := lootlocker.NewSessions(client, cfg.ServerAPIKey, cfg.GameVersion)
	guard := replay.NewGuard(replay.WithRetention(cfg.ReplayRetention))

	return api.New(cfg, guard, lootlocker.NewBalanceUpdater(client, sessions))
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting settlement relay",
		"game_id", cfg.GameID,
		"game_version", cfg.GameVersion,
		"currency_id", cfg.CurrencyID,
		"lootlocker_url", cfg.LootLockerURL,
		"freshness_window", cfg.FreshnessWindow,
		"replay_retention", cfg.ReplayRetention,
	)

	if err := newAPI(cfg).Start(ctx); err != nil {
		return err
	}

	slog.Info("Shutting down...")
	return nil
}
