package cliconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Logger returns the package logger.
func Logger() zerolog.Logger {
	return logger
}

// EventLogger builds the receiver's logger. Console output always goes
// to stderr; when path is non-empty every record is also appended as
// JSON to that file, giving the durable event log. verbose lowers the
// level to debug.
func EventLogger(path string, verbose bool) (zerolog.Logger, func() error, error) {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	closeFn := func() error { return nil }
	var out zerolog.LevelWriter = zerolog.MultiLevelWriter(console)
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("open event log: %w", err)
		}
		closeFn = f.Close
		out = zerolog.MultiLevelWriter(console, f)
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return l, closeFn, nil
}
