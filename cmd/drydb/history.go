package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage saved connections and query history",
	}
	cmd.AddCommand(
		newHistoryListCommand(a),
		newHistoryDeleteCommand(a),
		newHistoryClearCommand(a),
	)
	return cmd
}

func newHistoryListCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list [connection-id]",
		Short: "List saved connections, or the queries of one connection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				list, err := store.Connections(ctx)
				if err != nil {
					return err
				}
				return renderConnections(cmd.OutOrStdout(), list, format)
			}

			if _, err := store.Connection(ctx, args[0]); err != nil {
				return err
			}
			list, err := store.QueriesByConnection(ctx, args[0])
			if err != nil {
				return err
			}
			return renderQueries(cmd.OutOrStdout(), list, format)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format (table|json)")
	return cmd
}

func newHistoryDeleteCommand(a *app) *cobra.Command {
	var query bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved connection and its queries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if query {
				if err := store.DeleteQuery(ctx, args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted query %s\n", args[0])
				return nil
			}
			if err := store.DeleteConnection(ctx, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted connection %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&query, "query", false, "the id names a query rather than a connection")
	return cmd
}

func newHistoryClearCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every saved connection and query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Clear(ctx)
		},
	}
}
