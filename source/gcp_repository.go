package source

import (
	"context"
	"io"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GcpStorageRepository is a struct that implements the Repository interface for
// handling configuration data stored in a YAML file within a GCS bucket.
type GcpStorageRepository struct {
	document
	Name       string          // Name of the configuration source
	BucketName string          // Name of the GCS bucket
	ObjectName string          // Name of the YAML file within the GCS bucket
	Anonymous  bool            // Read public buckets without credentials
	Client     *storage.Client // GCS client instance

	clientOnce    sync.Once // Ensures client is initialized only once
	clientInitErr error     // Stores error from client initialization
}

// GetName returns the name of the configuration source.
func (g *GcpStorageRepository) GetName() string {
	return g.Name
}

func (g *GcpStorageRepository) object(ctx context.Context) (*storage.ObjectHandle, error) {
	if g.Client == nil {
		g.clientOnce.Do(func() {
			var opts []option.ClientOption
			if g.Anonymous {
				opts = append(opts, option.WithoutAuthentication())
			}
			g.Client, g.clientInitErr = storage.NewClient(ctx, opts...)
		})
		if g.clientInitErr != nil {
			return nil, g.clientInitErr
		}
	}
	return g.Client.Bucket(g.BucketName).Object(g.ObjectName), nil
}

// Refresh reads the YAML file from the GCS bucket, unmarshal it into the data map.
func (g *GcpStorageRepository) Refresh(ctx context.Context) error {
	obj, err := g.object(ctx)
	if err != nil {
		return err
	}

	reader, err := obj.NewReader(ctx)
	if err != nil {
		return err
	}
	defer reader.Close()

	fileContent, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	return g.replace(fileContent)
}

// Store uploads data to the GCS object and makes it the current document.
func (g *GcpStorageRepository) Store(ctx context.Context, data []byte) error {
	obj, err := g.object(ctx)
	if err != nil {
		return err
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "application/yaml"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	// The upload is only committed once Close returns without error.
	if err := w.Close(); err != nil {
		return err
	}
	return g.replace(data)
}
