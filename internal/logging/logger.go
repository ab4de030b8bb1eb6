// Package logging builds the application logger on top of charmbracelet/log.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// FileName is the log file created inside the configured log directory.
const FileName = "narcorisks.log"

// Logger writes leveled, timestamped lines to the log file and, for the
// command line tools, to stderr as well. The terminal UI keeps stderr quiet
// so the log can be inspected after the program exits.
type Logger struct {
	*log.Logger
	file *os.File
}

// Options controls New.
type Options struct {
	Dir     string
	Debug   bool
	Console bool
}

// New creates (or reuses) the log file in opts.Dir.
func New(opts Options) (*Logger, error) {
	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}
	var sinks []io.Writer
	var file *os.File
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: ensure log dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(opts.Dir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		file = f
		sinks = append(sinks, f)
	}
	if opts.Console {
		sinks = append(sinks, os.Stderr)
	}
	var out io.Writer = io.Discard
	switch len(sinks) {
	case 0:
	case 1:
		out = sinks[0]
	default:
		out = io.MultiWriter(sinks...)
	}
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "narcorisks",
	})
	return &Logger{Logger: logger, file: file}, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: log.NewWithOptions(io.Discard, log.Options{})}
}

// Path returns the log file path, or "" when logging only to the console.
func (l *Logger) Path() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
