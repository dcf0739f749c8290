package main

import (
	"fmt"

	"github.com/sardine-ai/go-experiment-kit/config"
	"github.com/sardine-ai/go-experiment-kit/source"
	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and copy experiment configs",
	}
	cmd.AddCommand(newConfigShowCommand(), newConfigSaveCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var (
		uri       string
		overrides []string
		key       string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the config with overrides applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), uri, overrides)
			if err != nil {
				return err
			}

			var value interface{} = cfg
			if key != "" {
				v, ok := cfg.Get(key)
				if !ok {
					return fmt.Errorf("%q: %w", key, config.ErrNotFound)
				}
				value = v
			}
			data, err := config.Marshal(value)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&uri, "source", "s", config.DefaultPath, "config path or source URI")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "override a config value, e.g. --set trainer.lr=0.1")
	cmd.Flags().StringVar(&key, "key", "", "print only the value under this dotted key")
	return cmd
}

func newConfigSaveCommand() *cobra.Command {
	var (
		from      string
		to        string
		overrides []string
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Copy a config to a file, s3:// or gs:// destination",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), from, overrides)
			if err != nil {
				return err
			}

			dest, err := source.Open("destination", to)
			if err != nil {
				return err
			}
			writer, ok := dest.(source.Writer)
			if !ok {
				return fmt.Errorf("destination %q is read only", to)
			}
			return config.SaveTo(cmd.Context(), writer, cfg)
		},
	}
	cmd.Flags().StringVarP(&from, "source", "s", config.DefaultPath, "config path or source URI")
	cmd.Flags().StringVar(&to, "to", "", "destination path or URI")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "override a config value, e.g. --set trainer.lr=0.1")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
