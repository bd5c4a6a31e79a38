// Package logging provides the leveled stderr logger shared by the CLI,
// the HTTP server and the pipeline.
package logging

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Level is the minimum severity a Logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level. Unknown values fall back to info.
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

var (
	debugLabel = color.New(color.FgCyan)
	infoLabel  = color.New(color.FgGreen)
	warnLabel  = color.New(color.FgYellow, color.Bold)
	errorLabel = color.New(color.FgRed, color.Bold)
)

// Logger writes printf-style messages prefixed with a level label.
type Logger struct {
	*log.Logger
	level Level
	color bool
}

// NewLogger creates a Logger on stderr. Color is enabled only when stderr is a terminal.
func NewLogger(level Level) *Logger {
	return New(os.Stderr, level, term.IsTerminal(int(os.Stderr.Fd())))
}

// New creates a Logger writing to w.
func New(w io.Writer, level Level, useColor bool) *Logger {
	return &Logger{
		Logger: log.New(w, "", log.LstdFlags),
		level:  level,
		color:  useColor,
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, LevelError+1, false)
}

// Enabled reports whether messages at lvl are emitted.
func (l *Logger) Enabled(lvl Level) bool {
	return l != nil && lvl >= l.level
}

func (l *Logger) emit(lvl Level, label string, c *color.Color, msg string, args ...any) {
	if !l.Enabled(lvl) {
		return
	}
	if l.color {
		label = c.Sprint(label)
	}
	l.Printf(label+": "+msg, args...)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) { l.emit(LevelDebug, "DEBUG", debugLabel, msg, args...) }

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...any) { l.emit(LevelInfo, "INFO", infoLabel, msg, args...) }

// Warn logs a warning.
func (l *Logger) Warn(msg string, args ...any) { l.emit(LevelWarn, "WARN", warnLabel, msg, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) { l.emit(LevelError, "ERROR", errorLabel, msg, args...) }
