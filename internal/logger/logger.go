// Package logger provides leveled logging to stderr (and optionally a
// file), with colored level tags when stderr is a terminal.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Level filters log output. Messages below the configured level are
// discarded.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var levelColors = map[Level]*color.Color{
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
}

// Logger writes timestamped, level-tagged lines. Safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	level    Level
	out      io.Writer
	useColor bool
	file     *os.File
}

var std = &Logger{
	level:    LevelInfo,
	out:      os.Stderr,
	useColor: isatty.IsTerminal(os.Stderr.Fd()),
}

// Setup configures the package-level logger. When verbose is set the
// level drops to debug. A non-empty logFile mirrors all output (without
// color) to that file in addition to stderr.
func Setup(verbose bool, logFile string) error {
	std.mu.Lock()
	defer std.mu.Unlock()

	if verbose {
		std.level = LevelDebug
	} else {
		std.level = LevelInfo
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		std.file = f
	}
	return nil
}

// Close releases the log file, if one was configured.
func Close() {
	std.mu.Lock()
	defer std.mu.Unlock()
	if std.file != nil {
		_ = std.file.Close()
		std.file = nil
	}
}

// SetOutput redirects log output, disabling color. Intended for tests.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.out = w
	std.useColor = false
}

// SetLevel overrides the minimum level.
func SetLevel(l Level) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.level = l
}

func (l *Logger) logf(lvl Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl < l.level {
		return
	}

	ts := time.Now().Format("15:04:05")
	tag := levelNames[lvl]
	msg := fmt.Sprintf(format, args...)

	if l.useColor {
		tag = levelColors[lvl].Sprint(tag)
	}
	fmt.Fprintf(l.out, "[%s] %s %s\n", ts, tag, msg)

	if l.file != nil {
		fmt.Fprintf(l.file, "[%s] %s %s\n", ts, levelNames[lvl], msg)
	}
}

func Debugf(format string, args ...any) { std.logf(LevelDebug, format, args...) }
func Infof(format string, args ...any)  { std.logf(LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { std.logf(LevelWarn, format, args...) }
func Errorf(format string, args ...any) { std.logf(LevelError, format, args...) }
