// Package config loads and saves experiment configuration documents.
//
// A Config is an untyped nested mapping read from YAML. Values are scalars,
// nested map[string]interface{} values or []interface{} sequences, exactly as
// gopkg.in/yaml.v3 decodes them.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sardine-ai/go-experiment-kit/source"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is read by Load when no path is given.
	DefaultPath = "./config.yaml"
	// DefaultFilename is written by Save when no filename is given.
	DefaultFilename = "config.yaml"
)

// Config is an experiment configuration document.
type Config map[string]interface{}

// LoadError reports a configuration that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot load %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SaveError reports a configuration that could not be encoded or written.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("cannot save %q: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Load reads the YAML document at path. An empty path reads DefaultPath.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	logrus.WithField("path", path).Debug("loaded config")
	return cfg, nil
}

// LoadFrom refreshes repo and parses its current document.
func LoadFrom(ctx context.Context, repo source.Repository) (Config, error) {
	if err := repo.Refresh(ctx); err != nil {
		return nil, &LoadError{Path: repo.GetName(), Err: err}
	}
	cfg, err := Parse(repo.GetRawData())
	if err != nil {
		return nil, &LoadError{Path: repo.GetName(), Err: err}
	}
	return cfg, nil
}

// Parse decodes a YAML document. An empty document yields an empty Config.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = Config{}
	}
	return cfg, nil
}

// Save writes cfg as YAML to dir/filename. cfg may be a Config, any other
// mapping or a struct carrying yaml tags. An empty filename writes
// DefaultFilename.
func Save(cfg interface{}, dir, filename string) error {
	if filename == "" {
		filename = DefaultFilename
	}
	path := filepath.Join(dir, filename)

	data, err := Marshal(cfg)
	if err != nil {
		return &SaveError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &SaveError{Path: path, Err: err}
	}

	logrus.WithField("path", path).Debug("saved config")
	return nil
}

// SaveTo encodes cfg and stores it through repo.
func SaveTo(ctx context.Context, repo source.Writer, cfg interface{}) error {
	data, err := Marshal(cfg)
	if err != nil {
		return &SaveError{Path: repo.GetName(), Err: err}
	}
	if err := repo.Store(ctx, data); err != nil {
		return &SaveError{Path: repo.GetName(), Err: err}
	}
	return nil
}

// Marshal encodes cfg as a YAML document with two space indentation.
func Marshal(cfg interface{}) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
