package source

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Open for an unsupported URI and by callers that
// look up a key that a repository does not hold.
var ErrNotFound = errors.New("not found")

// Repository is a named experiment configuration document that can be
// re-read from wherever it lives.
type Repository interface {
	GetName() string
	Refresh(ctx context.Context) error
	GetData(key string) (interface{}, bool)
	GetRawData() []byte
}

// Writer is implemented by repositories that can persist a document back to
// their backing store.
type Writer interface {
	Repository
	Store(ctx context.Context, data []byte) error
}
