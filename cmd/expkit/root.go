package main

import (
	"context"
	"fmt"

	"github.com/sardine-ai/go-experiment-kit/config"
	"github.com/sardine-ai/go-experiment-kit/internal/logging"
	"github.com/sardine-ai/go-experiment-kit/source"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "expkit",
		Short:         "Scaffold and configure machine learning experiment runs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts := logging.FromEnv()
			if logLevel != "" {
				opts.Level = logLevel
			}
			opts.Output = cmd.ErrOrStderr()
			logging.Configure(opts)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides "+logging.EnvLogLevel)

	root.AddCommand(newRunCommand(), newDeviceCommand(), newConfigCommand(), newServeCommand())
	return root
}

// loadConfig reads uri through the matching source and applies overrides.
func loadConfig(ctx context.Context, uri string, overrides []string) (config.Config, error) {
	repo, err := source.Open("config", uri)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFrom(ctx, repo)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyOverrides(overrides); err != nil {
		return nil, fmt.Errorf("applying overrides: %w", err)
	}
	return cfg, nil
}
