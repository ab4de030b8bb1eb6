package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := New(Options{Dir: dir, Debug: true})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("resolved path", "path", "general.awareness")
	logger.Info("schema loaded", "groups", 2)
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if logger.Path() != filepath.Join(dir, FileName) {
		t.Fatalf("path = %q", logger.Path())
	}
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	for _, want := range []string{"resolved path", "path=general.awareness", "schema loaded"} {
		if !strings.Contains(text, want) {
			t.Fatalf("log missing %q:\n%s", want, text)
		}
	}
}

func TestInfoLevelHidesDebug(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Options{Dir: dir})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("hidden")
	logger.Warn("shown")
	_ = logger.Close()
	data, _ := os.ReadFile(filepath.Join(dir, FileName))
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Fatalf("unexpected log content:\n%s", data)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Info("nothing")
	if logger.Path() != "" {
		t.Fatalf("discard logger should have no path")
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
