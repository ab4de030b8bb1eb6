// Package export hands a compiled summary to the outside world: the system
// clipboard or a timestamped file in the export directory.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/kingrea/narcorisks/internal/summary"
)

// Format selects the file rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts text, markdown (md) and json.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("export: unknown format %q", raw)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// Render produces the bytes written for doc in format f.
func Render(doc summary.Document, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return []byte(summary.RenderMarkdown(doc) + "\n"), nil
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("export: encode json: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return []byte(summary.RenderText(doc) + "\n"), nil
	}
}

// Exporter writes summaries.
type Exporter struct {
	dir       string
	now       func() time.Time
	clipboard func(string) error
}

// Option customizes an Exporter during construction.
type Option func(*Exporter)

// WithClock overrides the clock used for file names.
func WithClock(clock func() time.Time) Option {
	return func(e *Exporter) {
		e.now = clock
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(e *Exporter) {
		e.clipboard = write
	}
}

// New builds an exporter writing files below dir.
func New(dir string, opts ...Option) *Exporter {
	e := &Exporter{
		dir: dir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dir returns the export directory.
func (e *Exporter) Dir() string { return e.dir }

// Copy places the plain-text summary on the clipboard.
func (e *Exporter) Copy(doc summary.Document) error {
	if doc.IsEmpty() {
		return fmt.Errorf("export: nothing to copy")
	}
	write := e.clipboard
	if write == nil {
		if clipboard.Unsupported {
			return fmt.Errorf("export: clipboard unsupported on this system")
		}
		write = clipboard.WriteAll
	}
	if err := write(summary.RenderText(doc)); err != nil {
		return fmt.Errorf("export: copy to clipboard: %w", err)
	}
	return nil
}

// Save writes doc to a new file named after the current time and returns its
// path.
func (e *Exporter) Save(doc summary.Document, f Format) (string, error) {
	if strings.TrimSpace(e.dir) == "" {
		return "", fmt.Errorf("export: no export directory configured")
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("export: ensure dir: %w", err)
	}
	name := "aufklaerung-" + e.now().Format("20060102-150405") + f.Extension()
	path := filepath.Join(e.dir, name)
	return path, e.WriteFile(path, doc, f)
}

// WriteFile writes doc to path, replacing any existing file.
func (e *Exporter) WriteFile(path string, doc summary.Document, f Format) error {
	data, err := Render(doc, f)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("export: replace %s: %w", path, err)
	}
	return nil
}
