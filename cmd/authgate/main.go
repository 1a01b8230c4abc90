// Command authgate runs the token service and its operator tooling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "authgate:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "authgate",
		Short:         "authgate issues, validates, rotates and revokes JWT access and refresh tokens",
		SilenceErrors: true,
		SilenceUsage:  true,
		Example: `
  # Serve with a config file, secret from the environment
  AUTHGATE_JWT_SECRET=change-me authgate serve --config authgate.yaml

  # Local development against an in-process Redis
  AUTHGATE_JWT_SECRET=dev authgate serve --embedded-redis

  # Measure validate and refresh throughput
  authgate loadtest --users 1000 --ops 20000`,
	}
	cmd.AddCommand(newServeCommand(), newLoadtestCommand(), newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the authgate version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "authgate %s\n", version)
			return err
		},
	}
}
