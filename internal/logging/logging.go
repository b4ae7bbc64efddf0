// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// Options select the logger's output.
type Options struct {
	Name   string
	Level  string // trace, debug, info, warn, error, off
	Format string // text or json
	Output io.Writer
}

// New returns a logger writing to opts.Output, stderr by default.
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      level,
		Output:     out,
		JSONFormat: opts.Format == "json",
	})
}

// ToFile opens path for appending and returns a logger writing to it along
// with a close func for the file.
func ToFile(path string, opts Options) (hclog.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	opts.Output = f
	return New(opts), f.Close, nil
}
