package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeS3 stores objects by request path, which is /bucket/key with path
// style addressing.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			return
		}
		w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestAwsS3Repository(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	testServer := httptest.NewServer(fake)
	defer testServer.Close()

	newRepo := func() *AwsS3Repository {
		return &AwsS3Repository{
			Name:       "base",
			BucketName: "experiments",
			ObjectName: "runs/base.yaml",
			Region:     "us-east-1",
			Endpoint:   testServer.URL,
			AccessKey:  "test",
			SecretKey:  "test",
		}
	}
	ctx := context.Background()

	repo := newRepo()
	if err := repo.Refresh(ctx); err == nil {
		t.Fatal("expected refresh of a missing object to fail")
	}

	if err := repo.Store(ctx, []byte(testData)); err != nil {
		t.Fatal(err)
	}
	if string(fake.objects["/experiments/runs/base.yaml"]) != testData {
		t.Errorf("unexpected stored object %q", fake.objects["/experiments/runs/base.yaml"])
	}

	reread := newRepo()
	if err := reread.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if name, _ := reread.GetData("name"); name != "resnet50" {
		t.Errorf("expected name resnet50, got %v", name)
	}
}
