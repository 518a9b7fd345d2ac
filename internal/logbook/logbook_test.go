package logbook

import (
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

func TestAppendFlattensMultilineMessages(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "logs", "journal.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.Error("save failed:\n  connection refused")
	lines, total := book.Tail(10)
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if !strings.Contains(lines[0], "ERROR save failed: connection refused") {
		t.Fatalf("unexpected line %q", lines[0])
	}
}

func TestTailOnMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "journal.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	if lines, total := book.Tail(5); lines != nil || total != 0 {
		t.Fatalf("expected empty tail, got %v/%d", lines, total)
	}
	var nilBook *Logbook
	nilBook.Warn("ignored")
}

func TestRecordFormatAndWrappedTail(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "journal.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.clock = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("BRT", -3*3600)) }
	book.Warn("catalog is empty")
	for i := 0; i < 6; i++ {
		book.Info("marked topic-%d", i)
	}
	lines, total := book.Tail(4)
	if total != 7 {
		t.Fatalf("total = %d, want 7", total)
	}
	want := []string{
		"2024-05-01T12:30:00Z INFO  marked topic-2",
		"2024-05-01T12:30:00Z INFO  marked topic-3",
		"2024-05-01T12:30:00Z INFO  marked topic-4",
		"2024-05-01T12:30:00Z INFO  marked topic-5",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("tail = %q", lines)
	}
	all, _ := book.Tail(50)
	if len(all) != 7 || all[0] != "2024-05-01T12:30:00Z WARN  catalog is empty" {
		t.Fatalf("full tail = %q", all)
	}
}
