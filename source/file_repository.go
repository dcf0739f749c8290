package source

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileRepository is a struct that implements the Repository interface for
// handling configuration data stored in a YAML file on local disk.
type FileRepository struct {
	document
	Name string // Name of the configuration source
	Path string // File path of the YAML configuration file
}

// GetName returns the name of the configuration source.
func (f *FileRepository) GetName() string {
	return f.Name
}

// Refresh reads the YAML file and unmarshals it into the data map.
func (f *FileRepository) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		logrus.WithField("path", f.Path).Debug("error reading file")
		return err
	}
	return f.replace(data)
}

// Store writes data to Path, creating the parent directory when needed, and
// makes it the current document.
func (f *FileRepository) Store(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}

	// Write to a sibling temp file so a crash never leaves a half written config.
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return err
	}
	return f.replace(data)
}

// NewFileRepository creates a FileRepository for the file at path, resolved
// to an absolute path.
func NewFileRepository(name, path string) (*FileRepository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		logrus.WithError(err).Error("error getting absolute path")
		return nil, err
	}
	return &FileRepository{Name: name, Path: abs}, nil
}
