package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Open returns the repository addressed by uri. Supported forms are:
//
//	./config.yaml, /abs/config.yaml, file:///abs/config.yaml
//	https://host/path/config.yaml
//	s3://bucket/key.yaml?region=eu-west-1&endpoint=http://localhost:9000
//	gs://bucket/object.yaml
//	git+https://host/org/repo.git//path/in/repo.yaml?ref=branch
func Open(name, uri string) (Repository, error) {
	u, err := url.Parse(uri)
	// A single letter scheme is a Windows drive, not a URL.
	if err != nil || len(u.Scheme) <= 1 {
		return NewFileRepository(name, uri)
	}

	switch {
	case u.Scheme == "file":
		return NewFileRepository(name, u.Host+u.Path)
	case u.Scheme == "http" || u.Scheme == "https":
		return &WebRepository{Name: name, URL: u}, nil
	case u.Scheme == "s3":
		q := u.Query()
		return &AwsS3Repository{
			Name:       name,
			BucketName: u.Host,
			ObjectName: strings.TrimPrefix(u.Path, "/"),
			Region:     q.Get("region"),
			Endpoint:   q.Get("endpoint"),
		}, nil
	case u.Scheme == "gs":
		return &GcpStorageRepository{
			Name:       name,
			BucketName: u.Host,
			ObjectName: strings.TrimPrefix(u.Path, "/"),
			Anonymous:  u.Query().Get("anonymous") == "true",
		}, nil
	case strings.HasPrefix(u.Scheme, "git+"):
		return openGit(name, u)
	default:
		return nil, fmt.Errorf("source %q: unsupported scheme %q: %w", name, u.Scheme, ErrNotFound)
	}
}

func openGit(name string, u *url.URL) (*GitRepository, error) {
	remote, path, ok := strings.Cut(u.Path, "//")
	if !ok || path == "" {
		return nil, fmt.Errorf("source %q: git uri needs //path/to/file.yaml after the repository", name)
	}

	repo := &GitRepository{
		Name:   name,
		Path:   path,
		Branch: u.Query().Get("ref"),
	}
	if u.User != nil {
		password, _ := u.User.Password()
		repo.Auth = &http.BasicAuth{Username: u.User.Username(), Password: password}
	}
	repo.URL = &url.URL{
		Scheme: strings.TrimPrefix(u.Scheme, "git+"),
		Host:   u.Host,
		Path:   remote,
	}
	return repo, nil
}
