// Package runlog implements the per-run human-readable timeline required by
// the run directory service: an append-only text file with lines of the form
// "[ISO8601-UTC] [LEVEL] message". It is a domain artifact with a contractual
// on-disk format, not a debugging aid, so it is deliberately not built on
// log/slog.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is the severity of a single log line.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARNING"
	LevelError Level = "ERROR"
)

// Logger appends lines to a single run's run.log. Safe for concurrent use,
// though the single-writer execution model never requires it.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// Open opens runDir/run.log in append mode, creating it if absent.
func Open(runDir string) (*Logger, error) {
	f, err := os.OpenFile(filepath.Join(runDir, "run.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("runlog: open: %w", err)
	}
	return &Logger{file: f}, nil
}

// Close flushes and closes the underlying file handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *Logger) write(level Level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("[%s] [%s] %s\n", time.Now().UTC().Format(time.RFC3339), level, msg)
	_, _ = l.file.WriteString(line)
}

// Info logs a normal-progress line, including token/character usage after
// every provider call.
func (l *Logger) Info(format string, args ...any) {
	l.write(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn logs a recoverable anomaly, e.g. "chunked at maximum without
// newline" or "fewer than 2 characters available".
func (l *Logger) Warn(format string, args ...any) {
	l.write(LevelWarn, fmt.Sprintf(format, args...))
}

// Error logs a fatal stage failure.
func (l *Logger) Error(format string, args ...any) {
	l.write(LevelError, fmt.Sprintf(format, args...))
}

// StageStart logs the start marker every stage must emit.
func (l *Logger) StageStart(stage string) {
	l.Info("stage %s: started", stage)
}

// StageEnd logs the end marker every stage must emit, with a success flag.
func (l *Logger) StageEnd(stage string, success bool, err error) {
	if success {
		l.Info("stage %s: completed successfully", stage)
		return
	}
	l.Error("stage %s: failed: %v", stage, err)
}
