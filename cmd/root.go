// Package cmd defines and implements the CLI commands for the regrade
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regrade",
		Short: "Batch recomputation of puzzle difficulty ratings.",
		Long: `regrade recomputes difficulty ratings for puzzles whose rating is
missing or stale. It selects pending puzzle IDs from the database, fans the
work out over a fixed pool of workers, and reports throughput and worker
liveness while running. A failing puzzle never aborts the batch.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (YAML)")
	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
