// Command relay runs the intrusion and restoration pipelines from the command line
// or behind a JSON API.
//
// Usage:
//
//	relay intrusion --alert "failed login x5 from 1.2.3.4"
//	relay intrusion --alerts-file alerts.txt
//	relay restore --image statue.jpg --level heavy --years 20
//	relay serve --config relay.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	output     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "relay",
		Short:         "Sequential pipelines for intrusion response and artifact restoration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to the config file (default: ./relay.yaml if present)")
	cmd.PersistentFlags().StringVarP(&flags.output, "output", "o", outputJSON, "output format: json or yaml")

	cmd.AddCommand(
		newIntrusionCmd(flags),
		newRestoreCmd(flags),
		newServeCmd(flags),
	)

	return cmd
}
