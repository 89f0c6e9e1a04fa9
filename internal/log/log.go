// Package log provides category-tagged structured logging for pakaudio.
//
// Call sites pass a category, a message and key/value pairs:
//
//	log.Debug(log.CatEngine, "Pack loaded", "id", id, "entries", n)
//	log.ErrorErr(log.CatPack, "Failed to open pack", err, "path", path)
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Category groups log lines by subsystem.
type Category string

const (
	CatEngine Category = "engine"
	CatPlugin Category = "plugin"
	CatPack   Category = "pack"
	CatCodec  Category = "codec"
	CatDriver Category = "driver"
	CatUI     Category = "ui"
	CatConfig Category = "config"
)

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	closer io.Closer
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// SetOutput redirects log output. A nil writer discards everything.
func SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetLevel changes the minimum level that is written.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// OpenFile sends log output to path (appending) until Close is called.
func OpenFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	Close()
	SetOutput(f)
	mu.Lock()
	closer = f
	mu.Unlock()
	return nil
}

// Close releases a file opened by OpenFile.
func Close() {
	mu.Lock()
	c := closer
	closer = nil
	mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(cat Category, msg string, kv ...any) {
	current().Debug(msg, append([]any{"cat", string(cat)}, kv...)...)
}

func Info(cat Category, msg string, kv ...any) {
	current().Info(msg, append([]any{"cat", string(cat)}, kv...)...)
}

func Warn(cat Category, msg string, kv ...any) {
	current().Warn(msg, append([]any{"cat", string(cat)}, kv...)...)
}

func Error(cat Category, msg string, kv ...any) {
	current().Error(msg, append([]any{"cat", string(cat)}, kv...)...)
}

// ErrorErr logs msg at error level with err attached.
func ErrorErr(cat Category, msg string, err error, kv ...any) {
	current().Error(msg, append([]any{"cat", string(cat), "err", err}, kv...)...)
}
