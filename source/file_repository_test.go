package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const testData = `---
name: resnet50
seed: 42
trainer:
  epochs: 30
  lr: 0.001
tags:
  - baseline
  - imagenet
`

func TestFileRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testData), 0o644); err != nil {
		t.Fatal(err)
	}

	repo, err := NewFileRepository("base", path)
	if err != nil {
		t.Fatal(err)
	}
	if repo.GetName() != "base" {
		t.Errorf("expected name %q, got %q", "base", repo.GetName())
	}
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if string(repo.GetRawData()) != testData {
		t.Fatal("raw data does not match")
	}

	name, ok := repo.GetData("name")
	if !ok || name != "resnet50" {
		t.Errorf("expected name resnet50, got %v", name)
	}
	trainer, ok := repo.GetData("trainer")
	if !ok {
		t.Fatal("trainer missing")
	}
	if epochs := trainer.(map[string]interface{})["epochs"]; epochs != 30 {
		t.Errorf("expected 30 epochs, got %v", epochs)
	}
	if _, ok := repo.GetData("missing"); ok {
		t.Error("expected missing key to be absent")
	}
}

func TestFileRepositoryRefreshKeepsLastGoodData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testData), 0o644); err != nil {
		t.Fatal(err)
	}
	repo := &FileRepository{Name: "base", Path: path}
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("name: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := repo.Refresh(context.Background()); err == nil {
		t.Fatal("expected a parse error")
	}
	if name, _ := repo.GetData("name"); name != "resnet50" {
		t.Errorf("expected previous data to survive, got %v", name)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := repo.Refresh(context.Background()); !os.IsNotExist(err) {
		t.Errorf("expected not exist error, got %v", err)
	}
}

func TestFileRepositoryStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	repo := &FileRepository{Name: "out", Path: path}

	if err := repo.Store(context.Background(), []byte(testData)); err != nil {
		t.Fatal(err)
	}
	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(written) != testData {
		t.Errorf("expected stored file to match, got %q", written)
	}
	if seed, _ := repo.GetData("seed"); seed != 42 {
		t.Errorf("expected seed 42 after store, got %v", seed)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the config file to remain, got %d entries", len(entries))
	}
}

func TestFileRepositoryEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	repo := &FileRepository{Name: "empty", Path: path}
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := repo.GetData("anything"); ok {
		t.Error("expected empty document")
	}
}
