package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Daily trading signal engine",
	Long: `AI trading signal engine.

Computes daily indicators, ranks sectors weekly, sizes risk and emits
BUY/SELL/TRIM/ADD/WATCH verdicts over a paper book.

Usage:
  go run ./cmd/engine [command]

Examples:
  go run ./cmd/engine api
  go run ./cmd/engine run --date 2026-02-13
  go run ./cmd/engine scheduler start
  go run ./cmd/engine fetch NVDA AMD`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
