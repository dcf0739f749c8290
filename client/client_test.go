package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/sardine-ai/go-experiment-kit/config"
	"github.com/sardine-ai/go-experiment-kit/source"
)

const testData = `name: resnet50
trainer:
  epochs: 30
  lr: 0.001
  warmup: 2
tags:
  - baseline
  - imagenet
`

func writeConfig(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, testData)

	client := NewClient(context.Background(), &source.FileRepository{Name: "run", Path: path}, 10*time.Second)
	defer client.Close()

	var name string
	if err := client.GetConfig("name", &name); err != nil {
		t.Errorf("Error getting name: %s", err.Error())
	}
	if name != "resnet50" {
		t.Errorf("Expected name to be resnet50, got %s", name)
	}

	type Trainer struct {
		Epochs int     `yaml:"epochs"`
		LR     float64 `yaml:"lr"`
	}
	var trainer Trainer
	if err := client.GetConfig("trainer", &trainer); err != nil {
		t.Errorf("Error getting trainer: %s", err.Error())
	}
	if trainer != (Trainer{Epochs: 30, LR: 0.001}) {
		t.Errorf("Unexpected trainer %+v", trainer)
	}

	var tags []string
	if err := client.GetConfig("tags", &tags); err != nil {
		t.Errorf("Error getting tags: %s", err.Error())
	}
	if !reflect.DeepEqual(tags, []string{"baseline", "imagenet"}) {
		t.Errorf("Unexpected tags %v", tags)
	}

	if s, err := client.GetConfigString("name"); err != nil || s != "resnet50" {
		t.Errorf("GetConfigString: %q, %v", s, err)
	}
	if i, err := client.GetConfigInt("trainer.epochs"); err != nil || i != 30 {
		t.Errorf("GetConfigInt: %d, %v", i, err)
	}
	if f, err := client.GetConfigFloat("trainer.lr"); err != nil || f != 0.001 {
		t.Errorf("GetConfigFloat: %f, %v", f, err)
	}
	if f, err := client.GetConfigFloat("trainer.warmup"); err != nil || f != 2 {
		t.Errorf("GetConfigFloat widening: %f, %v", f, err)
	}

	if _, err := client.GetConfigInt("name"); err == nil {
		t.Error("Expected type mismatch error")
	}
	if _, err := client.GetConfigString("missing"); !errors.Is(err, config.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestClientRefreshesInBackground(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "lr: 0.1\n")

	client := NewClient(context.Background(), &source.FileRepository{Name: "run", Path: path}, 10*time.Millisecond)
	defer client.Close()

	writeConfig(t, path, "lr: 0.01\n")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lr, err := client.GetConfigFloat("lr"); err == nil && lr == 0.01 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("client never picked up the updated config")
}

func TestClientCloseStopsRefreshing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "lr: 0.1\n")

	client := NewClient(context.Background(), &source.FileRepository{Name: "run", Path: path}, 5*time.Millisecond)
	client.Close()

	writeConfig(t, path, "lr: 0.5\n")
	time.Sleep(30 * time.Millisecond)

	if lr, _ := client.GetConfigFloat("lr"); lr != 0.1 {
		t.Errorf("Expected closed client to keep 0.1, got %v", lr)
	}
}
