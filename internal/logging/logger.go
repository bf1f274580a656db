// Package logging wraps charmbracelet/log behind package-level helpers so
// library code can emit structured key/value logs without threading a logger
// through every constructor.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, log.InfoLevel)
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
		Prefix:          "cogdist",
	})
}

// Init redirects logging to w at the given level ("debug", "info", "warn",
// "error"). An unknown level falls back to info and is returned as an error.
func Init(w io.Writer, level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	mu.Lock()
	logger = newLogger(w, lvl)
	mu.Unlock()
	return err
}

// Discard silences all output. Tests use it to keep go test output clean.
func Discard() {
	mu.Lock()
	logger = newLogger(io.Discard, log.ErrorLevel)
	mu.Unlock()
}

// Logger returns the current logger.
func Logger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	Logger().Debug(msg, keyvals...)
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	Logger().Info(msg, keyvals...)
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	Logger().Warn(msg, keyvals...)
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	Logger().Error(msg, keyvals...)
}

// Fatal logs an error message and exits. Only binaries should call it.
func Fatal(msg string, keyvals ...interface{}) {
	Logger().Fatal(msg, keyvals...)
}
