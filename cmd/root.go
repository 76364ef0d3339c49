// Package cmd provides the CLI commands for the assistant.
//
// Commands:
//   - serve: HTTP API server with SSE streaming
//   - ask: one-shot question from the terminal
//   - ingest: load transcript chunks and products into the database
//   - version: version and configuration info
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MohamedRasheqA/bents-v3/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "bents",
	Short: "Bents - woodworking video tutorial assistant",
	Long: `Bents answers woodworking questions grounded in Jason Bent's video
tutorials. Answers cite the exact video moments they came from and link
related products from the shop catalog.

Configuration is read from ~/.bents/config.yaml, ./config.yaml, and
BENTS_* environment variables.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger. DEBUG in the environment enables
// debug level; BENTS_LOG_JSON switches to JSON output for log shippers.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{
		Level: level,
		JSON:  os.Getenv("BENTS_LOG_JSON") != "",
	})
}
