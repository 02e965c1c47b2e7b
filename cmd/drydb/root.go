package main

import (
	"context"

	"github.com/koustreak/DryDB/internal/config"
	"github.com/koustreak/DryDB/internal/export"
	"github.com/koustreak/DryDB/internal/filestore/minio"
	"github.com/koustreak/DryDB/internal/gateway"
	"github.com/koustreak/DryDB/internal/history"
	"github.com/koustreak/DryDB/internal/logger"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "drydb",
		Short: "DryDB - inspect databases and build SQL",
		Long: `DryDB connects to MySQL, MariaDB, PostgreSQL, SQL Server and SQLite
databases through one gateway. It reads their schema, runs statements,
keeps a per-connection query history and exports results to spreadsheets.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.New(cfg.Logger())
			logger.SetGlobal(a.log)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (json|console)")
	pf.String("history", "", "path to the history database")

	_ = root.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newServeCommand(a),
		newSchemaCommand(a),
		newQueryCommand(a),
		newBuildCommand(a),
		newHistoryCommand(a),
		newConfigCommand(a),
	)
	return root
}

func (a *app) gateway() *gateway.Gateway {
	return gateway.New(
		gateway.WithLogger(a.log),
		gateway.WithTimeouts(a.cfg.Timeouts()),
	)
}

func (a *app) openHistory(ctx context.Context) (*history.Store, error) {
	return history.Open(ctx, a.cfg.History.Path,
		history.WithLimit(a.cfg.History.Limit),
		history.WithLogger(a.log),
	)
}

// exporter builds the export sink. The returned close func releases the
// object store client when upload is enabled.
func (a *app) exporter(ctx context.Context) (*export.Exporter, func(), error) {
	opts := []export.Option{
		export.WithSheet(a.cfg.Export.Sheet),
		export.WithLogger(a.log),
	}

	closeFn := func() {}
	if a.cfg.Export.Upload.Enabled {
		fc := a.cfg.Filestore()
		store, err := minio.New(ctx, fc)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, export.WithUpload(store, fc.Bucket, fc.URLTTL))
		closeFn = func() { _ = store.Close() }
	}
	return export.NewExporter(a.cfg.Export.Dir, opts...), closeFn, nil
}
