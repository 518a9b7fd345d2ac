// Package logbook keeps the human-readable journal of an evaluator's
// actions. The terminal UI shows its tail next to the checklist.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Severity grades a journal line.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logbook is a line-oriented journal file. One call is one line:
// "<RFC3339 UTC> <SEVERITY> <message>".
type Logbook struct {
	mu    sync.Mutex
	path  string
	clock func() time.Time
}

// New prepares the journal at path, creating its directory.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	return &Logbook{path: path, clock: time.Now}, nil
}

func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record writes one line. Whitespace runs in msg, newlines included,
// collapse to a single space. Write failures are dropped.
func (l *Logbook) Record(sev Severity, msg string) {
	if l == nil {
		return
	}
	entry := fmt.Sprintf("%s %-5s %s\n",
		l.clock().UTC().Format(time.RFC3339), sev, strings.Join(strings.Fields(msg), " "))

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	_, _ = f.WriteString(entry)
	_ = f.Close()
}

// Tail returns the last n lines, oldest first, and how many lines the
// journal holds. Only n lines are kept in memory while scanning.
func (l *Logbook) Tail(n int) ([]string, int) {
	if l == nil || n <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer f.Close()

	ring := make([]string, n)
	count := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		ring[count%n] = sc.Text()
		count++
	}
	if count == 0 {
		return nil, 0
	}
	keep := min(count, n)
	out := make([]string, 0, keep)
	for i := count - keep; i < count; i++ {
		out = append(out, ring[i%n])
	}
	return out, count
}

func (l *Logbook) Info(format string, args ...any) {
	l.Record(SeverityInfo, fmt.Sprintf(format, args...))
}

func (l *Logbook) Warn(format string, args ...any) {
	l.Record(SeverityWarn, fmt.Sprintf(format, args...))
}

func (l *Logbook) Error(format string, args ...any) {
	l.Record(SeverityError, fmt.Sprintf(format, args...))
}
