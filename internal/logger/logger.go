// Package logger wraps log/slog with a colored console handler, an optional
// JSONL file sink and redaction of keys and page text.
package logger

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Level aliases
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ComponentKey is the attribute With uses to tag engine components.
const ComponentKey = "component"

var globalLogger *slog.Logger
var isTerminal = term.IsTerminal

func init() {
	Init(LevelInfo, nil)
}

// Init replaces the global logger. Records go to stderr, and also to logFile
// as JSON lines when it is non-nil. Color is used only for a terminal stderr
// without a log file.
func Init(level slog.Level, logFile io.Writer) {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: RedactAttr,
	}

	useColor := logFile == nil && isTerminal(int(os.Stderr.Fd()))
	var handler slog.Handler = NewPrettyHandler(os.Stderr, opts, useColor)
	if logFile != nil {
		handler = newFanout(handler, slog.NewJSONHandler(logFile, opts))
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

// Logger returns the current global logger.
func Logger() *slog.Logger { return globalLogger }

// With returns the global logger tagged with a component name.
// Engine components keep the returned logger so later Init calls do not affect them.
func With(component string) *slog.Logger {
	return globalLogger.With(ComponentKey, component)
}

func Debug(msg string, args ...any) { globalLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { globalLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { globalLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { globalLogger.Error(msg, args...) }
