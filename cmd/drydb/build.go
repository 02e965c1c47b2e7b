package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/koustreak/DryDB/internal/builder"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/spf13/cobra"
)

func newBuildCommand(_ *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate SQL from a builder document",
		Long: `Build reads a builder document in JSON from --file or stdin and prints
the SQL it generates.`,
		Example: `  echo '{"statementKind":"SELECT","tables":["users"],"limit":5}' | drydb build`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return errs.Wrap(errs.ErrKindInvalidInput, "failed to open builder document", err)
				}
				defer f.Close()
				r = f
			}

			sql, err := buildSQL(r)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "builder document (default: stdin)")
	return cmd
}

func buildSQL(r io.Reader) (string, error) {
	var st builder.State
	if err := json.NewDecoder(r).Decode(&st); err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "invalid builder document", err)
	}
	b := builder.New()
	if err := b.Load(st); err != nil {
		return "", err
	}
	return b.SQL(), nil
}
