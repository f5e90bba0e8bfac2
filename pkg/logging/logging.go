// Package logging provides the shared slog backend for the process: tagged
// subsystem loggers writing to stderr and, optionally, a rotating log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogBackend creates subsystem loggers sharing one output path and debug
// level.
type LogBackend struct {
	backend *slog.Backend
	rotator *rotator.Rotator
	level   slog.Level

	mu      sync.Mutex
	loggers map[string]slog.Logger
}

// logWriter fans log output out to stderr and the rotator.
type logWriter struct {
	rotator *rotator.Rotator
}

func (w *logWriter) Write(p []byte) (int, error) {
	os.Stderr.Write(p)
	if w.rotator != nil {
		return w.rotator.Write(p)
	}
	return len(p), nil
}

// NewLogBackend creates a backend writing to stderr and, when logFile is
// non-empty, to a rotating file. debugLevel applies to every logger handed
// out.
func NewLogBackend(logFile, debugLevel string) (*LogBackend, error) {
	level, ok := slog.LevelFromString(debugLevel)
	if !ok {
		return nil, fmt.Errorf("unknown debug level %q", debugLevel)
	}

	lb := &LogBackend{
		level:   level,
		loggers: make(map[string]slog.Logger),
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %v", err)
		}
		r, err := rotator.New(logFile, 1024, false, 3)
		if err != nil {
			return nil, fmt.Errorf("failed to create log rotator: %v", err)
		}
		lb.rotator = r
		w = &logWriter{rotator: r}
	}

	lb.backend = slog.NewBackend(w)
	return lb, nil
}

// Logger returns the logger for the given subsystem tag, creating it on
// first use.
func (lb *LogBackend) Logger(tag string) slog.Logger {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if l, ok := lb.loggers[tag]; ok {
		return l
	}
	l := lb.backend.Logger(tag)
	l.SetLevel(lb.level)
	lb.loggers[tag] = l
	return l
}

// Close flushes and closes the rotating log file, if any.
func (lb *LogBackend) Close() error {
	if lb.rotator != nil {
		return lb.rotator.Close()
	}
	return nil
}
