package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/shopdesk-server/internal/app"
	"github.com/vovakirdan/shopdesk-server/internal/config"
	"github.com/vovakirdan/shopdesk-server/internal/log"
)

var (
	configPath string
	overrides  config.Config
)

func main() {
	root := &cobra.Command{
		Use:           "shopdesk",
		Short:         "Shop admin backend with live support chat",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	root.PersistentFlags().StringVar(&overrides.DatabasePath, "db", "", "SQLite database path")
	root.PersistentFlags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "purge-orphans",
		Short: "Delete carts whose owner no longer exists",
		RunE:  runPurgeOrphans,
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	bootLog := log.New("info")
	cfg, path, err := config.Load(bootLog, configPath)
	if err != nil {
		return nil, err
	}
	cfg.UpdateFrom(overrides)
	bootLog.Debug().Str("path", path).Msg("config loaded")
	return &cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting shopdesk server")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func runPurgeOrphans(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer application.Close()

	purged, err := application.PurgeOrphanCarts(ctx)
	if err != nil {
		return err
	}
	logger.Info().Int("count", len(purged)).Strs("user_ids", purged).Msg("orphan carts purged")
	return nil
}
