// Package main is the entry point for the statusbot CLI.
//
// statusbot can be embedded as a library (SDK) or run as a standalone binary
// configured by an optional YAML file and environment variables. This CLI
// provides the standalone binary.
//
// Usage:
//
//	statusbot run                        # Poll and notify with defaults
//	statusbot run -c statusbot.yaml      # Poll and notify with a config file
//	statusbot validate -c statusbot.yaml # Validate configuration
//	statusbot version                    # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "statusbot",
	Short: "Homework review status notifier",
	Long: `statusbot polls the Practicum homework status API and sends a chat
message whenever the review status of your latest work changes.

Quick start:
  1. Export PRACTICUM_TOKEN, TELEGRAM_TOKEN and TELEGRAM_CHAT_ID
     (or put them in a .env file)
  2. Run: statusbot run

Example config (all keys optional):
  retry_period: 600s
  advance_cursor: true
  port: 8080
  messenger:
    provider: telegram
  log:
    file: debug.log`,
	SilenceUsage: true,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this statusbot binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "statusbot %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
