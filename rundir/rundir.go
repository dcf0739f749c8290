// Package rundir scaffolds the output directories of an experiment run.
package rundir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrInvalidName is returned when the run name cannot be a single path segment.
var ErrInvalidName = errors.New("invalid run name")

// Layout places the models and results trees of every run.
type Layout struct {
	Root       string
	ModelsDir  string
	ResultsDir string
}

// DefaultLayout creates ./models/<name> and ./results/<name>.
var DefaultLayout = Layout{Root: ".", ModelsDir: "models", ResultsDir: "results"}

// Dirs are the directories created for one run.
type Dirs struct {
	Name    string
	Models  string
	Results string
}

// Name joins prefix and runID with a dash, skipping empty parts.
func Name(runID, prefix string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{prefix, runID} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}

// NewRunID returns a time ordered run identifier.
func NewRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Create creates the run directories with DefaultLayout.
func Create(runID, prefix string) (Dirs, error) {
	return DefaultLayout.Create(runID, prefix)
}

// Create makes <Root>/<ModelsDir>/<name> and <Root>/<ResultsDir>/<name>. It
// fails if either already exists and leaves nothing behind on failure.
func (l Layout) Create(runID, prefix string) (Dirs, error) {
	name := Name(runID, prefix)
	if err := validate(name); err != nil {
		return Dirs{}, err
	}

	dirs := Dirs{
		Name:    name,
		Models:  filepath.Join(l.Root, l.ModelsDir, name),
		Results: filepath.Join(l.Root, l.ResultsDir, name),
	}

	if err := mkdirNew(dirs.Models); err != nil {
		return Dirs{}, err
	}
	if err := mkdirNew(dirs.Results); err != nil {
		if rmErr := os.Remove(dirs.Models); rmErr != nil {
			logrus.WithError(rmErr).WithField("path", dirs.Models).Error("error removing models directory")
		}
		return Dirs{}, err
	}

	logrus.WithFields(logrus.Fields{
		"models":  dirs.Models,
		"results": dirs.Results,
	}).Info("created run directories")
	return dirs, nil
}

// mkdirNew creates the parents of path and then path itself, failing with an
// fs.ErrExist error when path is already there.
func mkdirNew(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return nil
}

func validate(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}
