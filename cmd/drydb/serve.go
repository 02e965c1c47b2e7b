package main

import (
	"github.com/koustreak/DryDB/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve exposes the gateway, the query builder, the history store and
spreadsheet export under /api until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			exp, closeExp, err := a.exporter(ctx)
			if err != nil {
				return err
			}
			defer closeExp()

			srv := server.New(server.Config{
				Addr:         a.cfg.Server.Addr,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}, a.gateway(),
				server.WithLogger(a.log),
				server.WithHistory(store),
				server.WithExporter(exp),
			)
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8765)")
	cmd.Flags().String("export-dir", "", "directory for exported spreadsheets")
	return cmd
}
