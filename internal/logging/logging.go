// Package logging configures the process wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	EnvLogLevel  = "EXPKIT_LOG_LEVEL"
	EnvLogFormat = "EXPKIT_LOG_FORMAT"
)

// Options control the logger. Empty fields keep the defaults.
type Options struct {
	Level  string // panic, fatal, error, warn, info, debug or trace
	Format string // text or json
	Output io.Writer
}

// FromEnv reads Options from EXPKIT_LOG_LEVEL and EXPKIT_LOG_FORMAT.
func FromEnv() Options {
	return Options{
		Level:  os.Getenv(EnvLogLevel),
		Format: os.Getenv(EnvLogFormat),
	}
}

// Configure applies opts to the standard logrus logger. An unknown level is
// reported and ignored.
func Configure(opts Options) {
	if opts.Output != nil {
		logrus.SetOutput(opts.Output)
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logrus.WithField("format", opts.Format).Warn("unknown log format, using text")
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if opts.Level == "" {
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		logrus.WithError(err).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
