// internal/logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Log levels
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

var (
	level    = LevelInfo
	mu       sync.Mutex
	debugLog = log.New(os.Stderr, "[DEBUG] ", log.LstdFlags)
	infoLog  = log.New(os.Stderr, "[INFO] ", log.LstdFlags)
	warnLog  = log.New(os.Stderr, "[WARN] ", log.LstdFlags)
	errorLog = log.New(os.Stderr, "[ERROR] ", log.LstdFlags)
)

// Init configures level prefixes, colorizing them when stderr is a terminal
// and color is not disabled.
func Init(noColor bool) {
	mu.Lock()
	defer mu.Unlock()

	color := !noColor && isTerminal(os.Stderr)
	setPrefixes(color)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func setPrefixes(color bool) {
	prefix := func(tag, c string) string {
		if !color {
			return "[" + tag + "] "
		}
		return c + "[" + tag + "]" + colorReset + " "
	}
	debugLog.SetPrefix(prefix("DEBUG", colorGray))
	infoLog.SetPrefix(prefix("INFO", colorBlue))
	warnLog.SetPrefix(prefix("WARN", colorYellow))
	errorLog.SetPrefix(prefix("ERROR", colorRed))
}

// SetOutput sets the output for all loggers. Prefixes fall back to plain tags
// since the destination is no longer known to be a terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	debugLog.SetOutput(w)
	infoLog.SetOutput(w)
	warnLog.SetOutput(w)
	errorLog.SetOutput(w)

	f, ok := w.(*os.File)
	setPrefixes(ok && isTerminal(f))
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(levelStr) {
	case "debug":
		level = LevelDebug
	case "info":
		level = LevelInfo
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	default:
		level = LevelInfo
	}
}

// Enabled reports whether messages at lvl are emitted.
func Enabled(lvl int) bool {
	mu.Lock()
	defer mu.Unlock()
	return level <= lvl
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	if Enabled(LevelDebug) {
		debugLog.Output(2, fmt.Sprintf(format, v...))
	}
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	if Enabled(LevelInfo) {
		infoLog.Output(2, fmt.Sprintf(format, v...))
	}
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	if Enabled(LevelWarn) {
		warnLog.Output(2, fmt.Sprintf(format, v...))
	}
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	if Enabled(LevelError) {
		errorLog.Output(2, fmt.Sprintf(format, v...))
	}
}
