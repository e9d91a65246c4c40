package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lunagic/hestia/hestiaservices/database"
	"github.com/spf13/cobra"
)

func newCompileCmd() *cobra.Command {
	var (
		dialect   string
		prefix    string
		statement statementFlags
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the SQL and bindings of a select without a database",
		Example: `  hestia compile --dialect sqlsrv --table users --where active=1 --order id:desc --limit 10 --offset 20`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			driver, err := database.NewDriver(database.ConnectionConfig{
				Driver: dialect,
				Prefix: prefix,
			})
			if err != nil {
				return err
			}

			query, err := statement.apply(database.NewQueryBuilder(driver).From(statement.table))
			if err != nil {
				return err
			}

			text, err := query.ToSQL()
			if err != nil {
				return err
			}

			bindings, err := query.Bindings()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), text)

			if len(bindings) == 0 {
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "Binding"})
			for i, binding := range bindings {
				t.AppendRow(table.Row{i + 1, formatValue(binding)})
			}
			t.Render()

			return nil
		},
	}

	cmd.Flags().StringVarP(&dialect, "dialect", "d", "mysql", "mysql, pgsql, sqlite or sqlsrv")
	cmd.Flags().StringVar(&prefix, "prefix", "", "table prefix")
	statement.register(cmd)

	return cmd
}
