package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lunagic/hestia/hestiaservices/database"
	"github.com/lunagic/hestia/hestiatools"
	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	var (
		connectionName string
		statement      statementFlags
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a select on a connection and print the rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			connection, err := app.Connection(connectionName)
			if err != nil {
				return err
			}

			query, err := statement.apply(connection.Table(statement.table))
			if err != nil {
				return err
			}

			rows, err := query.Get(cmd.Context())
			if err != nil {
				return err
			}

			renderRows(cmd, statement.columns, rows)

			return nil
		},
	}

	cmd.Flags().StringVar(&connectionName, "connection", "", "connection name, the default one when empty")
	statement.register(cmd)

	return cmd
}

func renderRows(cmd *cobra.Command, columns []string, rows []database.Row) {
	if len(columns) == 0 && len(rows) > 0 {
		columns = hestiatools.SortedKeys(rows[0])
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(hestiatools.Map(columns, func(column string) any {
		return column
	})))

	for _, row := range rows {
		t.AppendRow(table.Row(hestiatools.Map(columns, func(column string) any {
			return formatValue(row[column])
		})))
	}

	t.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(rows))})
	t.Render()
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	}

	return fmt.Sprint(value)
}
