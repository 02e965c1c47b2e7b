package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueryCommand(a *app) *cobra.Command {
	var (
		conn     connFlags
		format   string
		doExport bool
	)

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a statement and print its results",
		Long: `Query runs one statement as given. Statements against a saved connection
are recorded in its history.`,
		Example: `  drydb query --dialect sqlite -d ./app.db "SELECT * FROM users"
  drydb query -c 5f0c... --export "SELECT * FROM orders"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ctx := cmd.Context()

			s, err := a.open(ctx, &conn)
			if err != nil {
				return err
			}
			defer s.close()

			rs, err := s.gw.ExecuteQuery(ctx, args[0])
			s.record(ctx, a, args[0], err)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := renderResults(out, rs, format); err != nil {
				return err
			}
			if !doExport {
				return nil
			}

			exp, closeExp, err := a.exporter(ctx)
			if err != nil {
				return err
			}
			defer closeExp()

			res, err := exp.Export(ctx, rs)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "exported %d rows to %s\n", res.Rows, res.Path)
			if res.URL != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "download: %s\n", res.URL)
			}
			return nil
		},
	}

	conn.register(cmd.Flags())
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format (table|json)")
	cmd.Flags().BoolVar(&doExport, "export", false, "also export the results to a spreadsheet")
	cmd.Flags().String("export-dir", "", "directory for exported spreadsheets")
	cmd.Flags().Duration("timeout", 0, "query timeout (default 30s)")
	return cmd
}
