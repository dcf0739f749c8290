package source

import (
	"context"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// commitFile writes content to name inside the worktree at dir and commits it.
func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Add(name); err != nil {
		t.Fatal(err)
	}
	_, err = w.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestGitRepository(t *testing.T) {
	// The file transport shells out to git-upload-pack.
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		t.Skip("git-upload-pack not available")
	}

	dir := t.TempDir()
	upstream, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	commitFile(t, upstream, dir, "base.yaml", testData)

	repo := &GitRepository{
		Name: "base",
		URL:  &url.URL{Scheme: "file", Path: dir},
		Path: "base.yaml",
	}
	ctx := context.Background()
	if err := repo.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if name, _ := repo.GetData("name"); name != "resnet50" {
		t.Errorf("expected name resnet50, got %v", name)
	}

	commitFile(t, upstream, dir, "base.yaml", "name: vit\n")
	if err := repo.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if name, _ := repo.GetData("name"); name != "vit" {
		t.Errorf("expected pulled name vit, got %v", name)
	}

	// Nothing new upstream is not an error.
	if err := repo.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
}
