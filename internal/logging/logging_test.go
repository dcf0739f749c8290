package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func restore(t *testing.T) {
	t.Helper()
	level := logrus.GetLevel()
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetFormatter(&logrus.TextFormatter{})
		logrus.SetLevel(level)
	})
}

func TestConfigureJSON(t *testing.T) {
	restore(t)
	var buf bytes.Buffer
	Configure(Options{Level: "debug", Format: "json", Output: &buf})

	logrus.WithField("seed", 42).Debug("random seed set")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "random seed set" || entry["seed"] != float64(42) {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestConfigureLevels(t *testing.T) {
	restore(t)
	var buf bytes.Buffer
	Configure(Options{Level: "warn", Output: &buf})

	logrus.Info("hidden")
	logrus.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}

	buf.Reset()
	Configure(Options{Level: "loud", Output: &buf})
	if logrus.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected fallback to info, got %v", logrus.GetLevel())
	}
	if !strings.Contains(buf.String(), "unknown log level") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "trace")
	t.Setenv(EnvLogFormat, "json")
	opts := FromEnv()
	if opts.Level != "trace" || opts.Format != "json" {
		t.Errorf("unexpected options %+v", opts)
	}
}
