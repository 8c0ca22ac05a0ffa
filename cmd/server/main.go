package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lanchat/lanchat-server/internal/app"
	"github.com/lanchat/lanchat-server/internal/config"
	"github.com/lanchat/lanchat-server/internal/log"
)

// Flag variables.
var (
	configPath string
	overrides  config.Config
)

var cmd = &cobra.Command{
	Use:   "lanchat-server",
	Short: "LAN chat server speaking length-prefixed JSON over TCP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bootLogger := log.New(overrides.LogLevel, overrides.LogFormat)

		cfg, path, err := config.Load(bootLogger, configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg.UpdateFrom(overrides)

		logger := log.New(cfg.LogLevel, cfg.LogFormat)
		logger.Info().Str("config", path).Msg("configuration loaded")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(cfg, logger)
		if err != nil {
			return err
		}

		if err := application.Run(ctx); err != nil {
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	cmd.Flags().StringVar(&overrides.Addr, "addr", "", "chat listen address (overrides config)")
	cmd.Flags().StringVar(&overrides.AdminAddr, "admin-addr", "", "admin HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&overrides.DatabasePath, "db", "", "sqlite database path (overrides config)")
	cmd.Flags().StringVar(&overrides.StorageDir, "storage", "", "received files directory (overrides config)")
	cmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	cmd.Flags().StringVar(&overrides.LogFormat, "log-format", "", "console or json (overrides config)")
}

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
