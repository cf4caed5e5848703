package main

import (
	"github.com/spf13/cobra"

	"github.com/askiada/go-relay/internal/intrusion"
	"github.com/askiada/go-relay/internal/server"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipelines as a JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root.configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			intrusionPipe, err := a.intrusionPipeline(cmd.Context(), intrusion.NewBlocker(a.logger))
			if err != nil {
				return err
			}

			restorationPipe, err := a.restorationPipeline(cmd.Context())
			if err != nil {
				return err
			}

			srv, err := server.New(server.Config{
				Intrusion:    intrusionPipe,
				Restoration:  restorationPipe,
				Gatherer:     a.registry,
				Logger:       a.logger,
				DefaultLevel: a.cfg.Restoration.Level,
				DefaultYears: a.cfg.Restoration.Years,
				Concurrency:  a.cfg.Batch.Concurrency,
			})
			if err != nil {
				return err
			}

			return srv.Start(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr of the config)")

	return cmd
}
