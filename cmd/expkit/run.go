package main

import (
	"fmt"
	"path/filepath"

	"github.com/sardine-ai/go-experiment-kit/config"
	"github.com/sardine-ai/go-experiment-kit/rundir"
	"github.com/sardine-ai/go-experiment-kit/seed"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	run := &cobra.Command{
		Use:   "run",
		Short: "Manage experiment runs",
	}
	run.AddCommand(newRunInitCommand())
	return run
}

func newRunInitCommand() *cobra.Command {
	var (
		runID     string
		prefix    string
		root      string
		configURI string
		overrides []string
		seedValue int64
		useGPU    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Seed, create the run directories and snapshot the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(ctx, configURI, overrides)
			if err != nil {
				return err
			}

			// An explicit flag wins over a seed stored in the config.
			if cmd.Flags().Changed("seed") {
				cfg["seed"] = seedValue
			}
			if v, ok := cfg["seed"]; ok {
				s, err := toSeed(v)
				if err != nil {
					return err
				}
				if err := seed.SetContext(ctx, s, useGPU); err != nil {
					return err
				}
			}

			if runID == "" {
				if runID, err = rundir.NewRunID(); err != nil {
					return err
				}
			}
			layout := rundir.DefaultLayout
			layout.Root = root
			dirs, err := layout.Create(runID, prefix)
			if err != nil {
				return err
			}

			if err := config.Save(cfg, dirs.Results, config.DefaultFilename); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run:     %s\n", dirs.Name)
			fmt.Fprintf(out, "models:  %s\n", dirs.Models)
			fmt.Fprintf(out, "results: %s\n", dirs.Results)
			fmt.Fprintf(out, "config:  %s\n", filepath.Join(dirs.Results, config.DefaultFilename))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&runID, "id", "", "run identifier, a UUIDv7 when empty")
	flags.StringVar(&prefix, "prefix", "", "prefix joined to the run identifier with a dash")
	flags.StringVar(&root, "root", ".", "directory holding the models and results trees")
	flags.StringVarP(&configURI, "config", "c", config.DefaultPath, "config path or source URI")
	flags.StringArrayVar(&overrides, "set", nil, "override a config value, e.g. --set trainer.lr=0.1")
	flags.Int64Var(&seedValue, "seed", 0, "random seed, overrides the config seed")
	flags.BoolVar(&useGPU, "gpu", false, "also seed accelerator generators")
	return cmd
}

func toSeed(v interface{}) (int64, error) {
	switch s := v.(type) {
	case int:
		return int64(s), nil
	case int64:
		return s, nil
	case uint64:
		if s > uint64(seed.MaxSeed) {
			return 0, fmt.Errorf("config seed %d: %w", s, seed.ErrSeedOutOfRange)
		}
		return int64(s), nil
	}
	return 0, fmt.Errorf("config seed is a %T, not an integer", v)
}
