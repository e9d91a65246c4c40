package main

import (
	"context"
	"log/slog"

	"github.com/lunagic/hestia/hestia"
	"github.com/spf13/cobra"
)

type configKey struct{}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "hestia",
		Short:         "Inspect and query hestia database connections",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			config, err := hestia.LoadConfig(configFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, config))

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "log every statement")
	rootCmd.PersistentFlags().String("default-connection", "", "connection used when none is named")

	rootCmd.AddCommand(
		newPingCmd(),
		newCompileCmd(),
		newQueryCmd(),
	)

	return rootCmd
}

func configFrom(cmd *cobra.Command) hestia.AppConfig {
	config, ok := cmd.Context().Value(configKey{}).(hestia.AppConfig)
	if !ok {
		return hestia.NewConfig()
	}

	return config
}

func newApp(cmd *cobra.Command) (*hestia.App, error) {
	config := configFrom(cmd)

	level := slog.LevelInfo
	if config.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return hestia.NewApp(cmd.Context(), config, hestia.WithLogger(logger))
}
