package main

import (
	"github.com/spf13/cobra"
)

func newSchemaCommand(a *app) *cobra.Command {
	var (
		conn   connFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show tables and columns of a database",
		Example: `  drydb schema --dialect sqlite -d ./app.db
  drydb schema --dialect postgresql --host db.local -u app -p secret -d shop -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ctx := cmd.Context()

			s, err := a.open(ctx, &conn)
			if err != nil {
				return err
			}
			defer s.close()

			schema, err := s.gw.GetSchema(ctx)
			if err != nil {
				return err
			}
			return renderSchema(cmd.OutOrStdout(), schema, format)
		},
	}

	conn.register(cmd.Flags())
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format (table|json)")
	return cmd
}
