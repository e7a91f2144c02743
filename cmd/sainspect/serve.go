package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koustreak/sqlany/internal/filestore"
	"github.com/koustreak/sqlany/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog and routine API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.open(ctx); err != nil {
				return err
			}

			srvCfg := a.cfg.Server
			if addr != "" {
				srvCfg.Addr = addr
			}

			var pub *filestore.Publisher
			if a.cfg.Store.Enabled() {
				p, err := a.publisher(ctx)
				if err != nil {
					return err
				}
				pub = p
			} else {
				a.log.Info("snapshot store not configured; snapshot routes disabled")
			}

			srv := server.New(a.inspector, server.Options{
				Config:       srvCfg,
				QueryTimeout: a.cfg.Database.QueryTimeout,
				Publisher:    pub,
				Logger:       a.log,
			})
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
