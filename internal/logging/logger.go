package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mayerbet/QAtool/internal/config"
)

// Field re-exports zap.Field so callers only import this package.
type Field = zap.Field

var (
	String = zap.String
	Int    = zap.Int
	Bool   = zap.Bool
	Err    = zap.Error
)

// Logger appends structured JSON lines to .qatool/logs/qatool.log so
// failures stay inspectable after the terminal UI exits.
type Logger struct {
	z    *zap.Logger
	file *os.File
}

// New creates (or reuses) the log file for the given workspace directory.
func New(workspaceDir, level string) (*Logger, error) {
	logDir := filepath.Join(workspaceDir, config.Dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "qatool.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	l, err := NewWriter(f, level)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.file = f
	return l, nil
}

// NewWriter builds a logger writing JSON lines to w.
func NewWriter(w io.Writer, level string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), lvl)
	return &Logger{z: zap.New(core)}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(component string) *Logger {
	if l == nil || l.z == nil {
		return NewNop()
	}
	return &Logger{z: l.z.Named(component)}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	if l == nil || l.z == nil {
		return NewNop()
	}
	return &Logger{z: l.z.With(fields...)}
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.z == nil {
		return zap.NewNop()
	}
	return l.z
}

// Printf writes a single info line. It keeps the signature the HTTP server
// expects from its logger.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.z == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.z.Info(line)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Error(msg, fields...)
}

// Close flushes buffered entries and releases the file handle.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	if l.z != nil {
		_ = l.z.Sync()
	}
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
