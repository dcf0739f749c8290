// Package client keeps an experiment configuration source refreshed while a
// long run is in progress, so operators can adjust tunables without a restart.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/sardine-ai/go-experiment-kit/config"
	"github.com/sardine-ai/go-experiment-kit/source"
	"github.com/sirupsen/logrus"
)

type Client struct {
	Repository      source.Repository
	RefreshInterval time.Duration
	cancel          context.CancelFunc
	done            chan struct{}
}

// NewClient creates a new Client with the provided context, repository,
// and refresh interval. It refreshes the repository once and then starts a
// background goroutine that refreshes it on every tick until Close is called
// or ctx is canceled.
func NewClient(ctx context.Context, repository source.Repository, refreshInterval time.Duration) *Client {
	ctx, cancel := context.WithCancel(ctx)

	client := &Client{
		Repository:      repository,
		RefreshInterval: refreshInterval,
		cancel:          cancel,
		done:            make(chan struct{}),
	}

	// Refresh the configuration data for the first time to ensure the
	// Client is initialized with the latest data before it is used.
	err := client.Repository.Refresh(ctx)
	if err != nil {
		logrus.WithError(err).WithField("source", repository.GetName()).Error("error refreshing repository")
	}

	go refresh(ctx, client)

	return client
}

// refresh is a goroutine that periodically refreshes the configuration data
// from the repository based on the provided refresh interval. It stops
// refreshing when the given context is canceled.
func refresh(ctx context.Context, client *Client) {
	defer close(client.done)
	ticker := time.NewTicker(client.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := client.Repository.Refresh(ctx)
			if err != nil {
				logrus.WithError(err).WithField("source", client.Repository.GetName()).Error("error refreshing repository")
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the background refresh goroutine and waits for it to return.
func (c *Client) Close() {
	c.cancel()
	<-c.done
}

// Config returns the whole current document.
func (c *Client) Config() (config.Config, error) {
	return config.Parse(c.Repository.GetRawData())
}

// GetConfig decodes the value under a dotted key such as "trainer.lr" into
// data, which must be a pointer.
func (c *Client) GetConfig(name string, data interface{}) error {
	cfg, err := c.Config()
	if err != nil {
		return err
	}
	return cfg.Decode(name, data)
}

// GetConfigString retrieves the string stored under name.
func (c *Client) GetConfigString(name string) (string, error) {
	value, err := c.lookup(name)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("config %q is a %T, not a string", name, value)
	}
	return s, nil
}

// GetConfigInt retrieves the integer stored under name.
func (c *Client) GetConfigInt(name string) (int, error) {
	value, err := c.lookup(name)
	if err != nil {
		return 0, err
	}
	i, ok := value.(int)
	if !ok {
		return 0, fmt.Errorf("config %q is a %T, not an int", name, value)
	}
	return i, nil
}

// GetConfigFloat retrieves the number stored under name. Integers are widened.
func (c *Client) GetConfigFloat(name string) (float64, error) {
	value, err := c.lookup(name)
	if err != nil {
		return 0, err
	}
	switch f := value.(type) {
	case float64:
		return f, nil
	case int:
		return float64(f), nil
	}
	return 0, fmt.Errorf("config %q is a %T, not a float", name, value)
}

func (c *Client) lookup(name string) (interface{}, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	value, ok := cfg.Get(name)
	if !ok {
		return nil, fmt.Errorf("config %q: %w", name, config.ErrNotFound)
	}
	return value, nil
}
