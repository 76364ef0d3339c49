package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MohamedRasheqA/bents-v3/api"
	"github.com/MohamedRasheqA/bents-v3/internal/app"
	"github.com/MohamedRasheqA/bents-v3/internal/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server with SSE streaming chat, session
management, and health endpoints. Shuts down gracefully on SIGINT or
SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	addr := serveAddr
	if addr == "" {
		addr = cfg.ServerAddr
	}

	server := api.NewServer(a.Engine, a.Flow, a.Sessions, a.Pool, logger)
	if err := server.Run(ctx, addr); err != nil {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}
