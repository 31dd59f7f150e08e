// Package glog builds the zerolog.Logger instances used throughout
// graphlog, mirroring the teacher's Config.CreateLogger helper: a
// level-parsed, timestamped logger writing either a human-readable
// console format or newline-delimited JSON.
package glog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Options configures logger construction.
type Options struct {
	// Level is a zerolog level name (debug, info, warn, error, ...).
	// Invalid or empty values fall back to info.
	Level string
	// Format is either "console" (default) or "json".
	Format string
	// Out defaults to os.Stderr when nil.
	Out io.Writer
}

// New builds a Logger per opts.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var writer io.Writer = out
	if opts.Format != "json" {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Str("service", "graphlog").Logger()
}
