package logbook

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestTailOnMissingFile(t *testing.T) {
	book, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if lines, total := book.Tail(10); lines != nil || total != 0 {
		t.Fatalf("Tail = %v, %d; want nothing", lines, total)
	}
}

func TestRecordFormatsSessionEntries(t *testing.T) {
	book, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	book.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	book.Record("0123456789abcdef", "toggle", "general.awareness\non")
	book.RecordWarning("abc", errors.New("path missing"))
	book.RecordWarning("abc", nil)

	lines, total := book.Tail(5)
	if total != 2 {
		t.Fatalf("total = %d, want 2: %v", total, lines)
	}
	if want := "2024-03-01T09:30:00Z INFO  [01234567] toggle general.awareness on"; lines[0] != want {
		t.Fatalf("line 0 = %q, want %q", lines[0], want)
	}
	if want := "2024-03-01T09:30:00Z WARN  [abc] path missing"; lines[1] != want {
		t.Fatalf("line 1 = %q, want %q", lines[1], want)
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Record("id", "op", "detail")
	if book.Path() != "" {
		t.Fatalf("nil logbook path should be empty")
	}
	if _, total := book.Tail(1); total != 0 {
		t.Fatalf("nil logbook tail should be empty")
	}
}
