// Package logging provides structured logging using Go's slog package.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
	output        io.Writer = os.Stderr
	currentLevel            = LevelWarn
	currentFormat           = FormatText
)

func init() {
	// Library callers stay quiet unless the host raises the level.
	InitLogger(LevelWarn, FormatText)
}

// Level represents a log level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// ParseLevel maps "debug", "info", "warn" and "error" to a Level. Anything
// else is LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ParseFormat maps "json" to FormatJSON and anything else to FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// InitLogger initializes the global logger with the specified level and format.
func InitLogger(level Level, format Format) {
	mu.Lock()
	defer mu.Unlock()

	currentLevel, currentFormat = level, format
	rebuild()
}

// SetOutput redirects the global logger, keeping its level and format.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	rebuild()
}

func rebuild() {
	var slogLevel slog.Level
	switch currentLevel {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if currentFormat == FormatJSON {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(handler)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func Debug(msg string, args ...any) { GetLogger().Debug(msg, args...) }
func Info(msg string, args ...any)  { GetLogger().Info(msg, args...) }
func Warn(msg string, args ...any)  { GetLogger().Warn(msg, args...) }
func Error(msg string, args ...any) { GetLogger().Error(msg, args...) }

// IndexEvent logs a change to a secondary index.
func IndexEvent(event, table, column string, args ...any) {
	allArgs := []any{
		"event", event,
		"table", table,
		"column", column,
	}
	allArgs = append(allArgs, args...)
	GetLogger().Debug("index_event", allArgs...)
}

// StorageEvent logs a blob store operation.
func StorageEvent(operation, path string, args ...any) {
	allArgs := []any{
		"operation", operation,
		"path", path,
	}
	allArgs = append(allArgs, args...)
	GetLogger().Debug("storage_event", allArgs...)
}

// CommitEvent logs a git commit written on behalf of a table.
func CommitEvent(table, transactionID string, args ...any) {
	allArgs := []any{
		"table", table,
		"transaction_id", transactionID,
	}
	allArgs = append(allArgs, args...)
	GetLogger().Info("commit", allArgs...)
}
