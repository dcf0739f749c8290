package source

import (
	"context"
	"errors"
	"io"
	"net/url"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/sirupsen/logrus"
)

// GitRepository is a struct that implements the Repository interface for
// handling configuration data stored in a YAML file within a Git repository.
// The repository is cloned into memory once and pulled on every refresh.
type GitRepository struct {
	document
	Name   string          // Name of the configuration source
	URL    *url.URL        // URL representing the Git repository URL
	Path   string          // Path to the YAML file within the Git repository
	Branch string          // Branch to use when cloning the Git repository
	Auth   *http.BasicAuth // BasicAuth to use when cloning the Git repository

	gitRepository *git.Repository  // Go-Git repository instance for the in-memory clone
	fs            billy.Filesystem // Filesystem to store the in-memory clone of the repository
}

// GetName returns the name of the configuration source.
func (g *GitRepository) GetName() string {
	return g.Name
}

// Refresh clones or pulls the Git repository and unmarshals the YAML file at
// Path into the data map.
func (g *GitRepository) Refresh(ctx context.Context) error {
	if err := g.sync(ctx); err != nil {
		return err
	}

	file, err := g.fs.Open(g.Path)
	if err != nil {
		return err
	}
	defer func(file billy.File) {
		err := file.Close()
		if err != nil {
			logrus.WithError(err).Error("error closing file")
		}
	}(file)

	fileContent, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	return g.replace(fileContent)
}

func (g *GitRepository) sync(ctx context.Context) error {
	g.Lock()
	defer g.Unlock()

	if g.gitRepository == nil {
		fs := memfs.New()
		logrus.Debugf("Cloning %s into memory", g.URL.Redacted())

		options := &git.CloneOptions{
			URL:  g.URL.String(),
			Auth: g.auth(),
		}
		if g.Branch != "" {
			options.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
			options.SingleBranch = true
		}
		r, err := git.CloneContext(ctx, memory.NewStorage(), fs, options)
		if err != nil {
			return err
		}

		logrus.Debug("Cloned")
		g.gitRepository = r
		g.fs = fs
		return nil
	}

	w, err := g.gitRepository.Worktree()
	if err != nil {
		return err
	}
	logrus.Debug("Pulling")

	pullOptions := &git.PullOptions{
		Auth: g.auth(),
	}
	if g.Branch != "" {
		pullOptions.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
		pullOptions.SingleBranch = true
		pullOptions.Force = true
	}

	err = w.PullContext(ctx, pullOptions)
	switch {
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		logrus.Debug("Already up to date")
	case err != nil:
		return err
	default:
		logrus.Debug("Pulled")
	}
	return nil
}

// auth avoids handing go-git a typed nil, which it would try to use.
func (g *GitRepository) auth() transport.AuthMethod {
	if g.Auth == nil || g.Auth.Username == "" && g.Auth.Password == "" {
		return nil
	}
	return g.Auth
}
