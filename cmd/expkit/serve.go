package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sardine-ai/go-experiment-kit/server"
	"github.com/sardine-ai/go-experiment-kit/source"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var (
		addr     string
		sources  []string
		authKey  string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve shared base configs to sweep workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, err := openSources(sources)
			if err != nil {
				return err
			}

			if authKey == "" {
				authKey = os.Getenv("EXPKIT_AUTH_KEY")
			}
			srv := server.NewServer(cmd.Context(), repos, interval)
			srv.AuthKey = authKey

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(signals)
			go func() {
				<-signals
				logrus.Info("shutting down")
				if err := srv.Shutdown(); err != nil {
					logrus.WithError(err).Error("error shutting down server")
				}
			}()

			return srv.Start(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringArrayVar(&sources, "source", nil, "config to serve as name=URI, repeatable")
	cmd.Flags().StringVar(&authKey, "auth-key", "", "require this X-API-KEY on config endpoints (default $EXPKIT_AUTH_KEY)")
	cmd.Flags().DurationVar(&interval, "refresh", time.Minute, "source refresh interval")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func openSources(specs []string) ([]source.Repository, error) {
	repos := make([]source.Repository, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		name, uri, ok := strings.Cut(spec, "=")
		if !ok || name == "" || uri == "" {
			return nil, fmt.Errorf("invalid source %q: expected name=URI", spec)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate source name %q", name)
		}
		seen[name] = true

		repo, err := source.Open(name, uri)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}
