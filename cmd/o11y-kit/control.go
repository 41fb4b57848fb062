package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuprum-acid/o11y-kit/internal/cli"
	"github.com/cuprum-acid/o11y-kit/internal/client"
	"github.com/cuprum-acid/o11y-kit/internal/loadtest"
	"github.com/spf13/cobra"
)

// clientFlags are shared by the commands that talk to a running service
type clientFlags struct {
	server string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	server := os.Getenv("O11YKIT_SERVER")
	if server == "" {
		server = client.DefaultServer
	}

	cmd.Flags().StringVar(&f.server, "server", server, "Base URL of the service (env O11YKIT_SERVER)")
}

func (f *clientFlags) client() (*client.Client, error) {
	return client.New(f.server, client.DefaultTimeout)
}

func newStartCmd() *cobra.Command {
	var (
		flags clientFlags
		rps   int
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a load test run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}

			if err := c.Start(cmd.Context(), rps); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Load test started at %d rps\n", rps)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&rps, "rps", "r", 10, "Requests per second")

	return cmd
}

func newStopCmd() *cobra.Command {
	var flags clientFlags

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the active load test run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}

			if err := c.Stop(cmd.Context()); err != nil {
				return err
			}

			snap, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}

			out, err := cli.FormatSnapshot(*snap, cli.FormatText)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Load test stopped\n%s", out)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func newStatusCmd() *cobra.Command {
	var (
		flags  clientFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current load test statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.ValidateFormat(output); err != nil {
				return err
			}

			c, err := flags.client()
			if err != nil {
				return err
			}

			snap, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}

			out, err := cli.FormatSnapshot(*snap, output)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", cli.FormatText, "Output format (text/json/yaml)")

	return cmd
}

func newWatchCmd() *cobra.Command {
	var flags clientFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live load test statistics",
		Long: `Follow the live load test statistics.

On a terminal the panel is redrawn in place; otherwise one line is printed
per received snapshot. Press Ctrl+C to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watch(ctx, c, cli.NewDashboard(cmd.OutOrStdout()), flags.server)
		},
	}

	flags.register(cmd)

	return cmd
}

func watch(ctx context.Context, c *client.Client, dashboard *cli.Dashboard, source string) error {
	var showErr error

	err := c.Watch(ctx, func(snap loadtest.Snapshot) {
		if showErr == nil {
			showErr = dashboard.Show(snap, source)
		}
	})
	if err != nil {
		return err
	}

	return showErr
}
