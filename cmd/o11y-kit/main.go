package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "o11y-kit",
		Short: "Items service with a built-in load generator",
		Long: `o11y-kit serves a small items API and can load test it from the inside.

A single load test run issues GET requests against the configured target at a
fixed rate. Live statistics are pushed to WebSocket subscribers and exported
as Prometheus metrics.

Examples:
  o11y-kit serve                          # Start the service on :8000
  o11y-kit serve --config o11y-kit.yaml   # Start with a config file
  o11y-kit start --rps 50                 # Begin a run at 50 requests/s
  o11y-kit watch                          # Follow the live statistics
  o11y-kit status -o json                 # Print the current snapshot
  o11y-kit stop                           # End the run`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newWatchCmd())

	return rootCmd
}
