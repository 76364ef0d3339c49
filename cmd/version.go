package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Bents %s\n", AppVersion)
		fmt.Fprintf(cmd.OutOrStdout(), "Build Time: %s\n", BuildTime)
		fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
