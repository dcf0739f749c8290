package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// WebRepository is a struct that implements the Repository interface for
// handling configuration data fetched from a remote HTTP endpoint (web URL).
type WebRepository struct {
	document
	Name   string       // Name of the configuration source
	URL    *url.URL     // URL representing the remote HTTP endpoint (web URL)
	APIKey string       // Optional API key for X-API-Key header authentication
	Client *http.Client // HTTP client, http.DefaultClient when nil
}

// GetName returns the name of the configuration source.
func (w *WebRepository) GetName() string {
	return w.Name
}

// Refresh fetches the YAML file from the remote HTTP endpoint (web URL),
// unmarshal it into the data map.
func (w *WebRepository) Refresh(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL.String(), nil)
	if err != nil {
		logrus.Debug("error creating request")
		return err
	}

	if w.APIKey != "" {
		request.Header.Set("X-API-Key", w.APIKey)
	}

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(request)
	if err != nil {
		logrus.Debug("error doing request")
		return err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logrus.WithError(err).Debug("error closing response body")
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", w.URL.Redacted(), resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.Debug("error reading file")
		return err
	}
	return w.replace(data)
}
