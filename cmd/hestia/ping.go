package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var errPingFailed = errors.New("some connections could not be reached")

func newPingCmd() *cobra.Command {
	var connectionName string

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Connect to every configured connection, or only the named one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			names := app.Registry().Names()
			if connectionName != "" {
				names = []string{connectionName}
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Connection", "Driver", "Status"})

			failed := false
			for _, name := range names {
				connection, err := app.Connection(name)
				if err != nil {
					failed = true
					t.AppendRow(table.Row{name, "", err.Error()})
					continue
				}

				status := "ok"
				if err := connection.Ping(cmd.Context()); err != nil {
					failed = true
					status = err.Error()
				}

				t.AppendRow(table.Row{name, connection.Driver().Name(), status})
			}
			t.Render()

			if failed {
				return fmt.Errorf("ping: %w", errPingFailed)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&connectionName, "connection", "", "only ping this connection")

	return cmd
}
