// Package logger provides the leveled logging utility of the paytest harness.
// It wraps the standard `log` package and filters messages based on log levels.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
type LogLevel int32

const (
	// LevelDebug is used for detailed diagnostic output such as per-portion timings.
	LevelDebug LogLevel = iota
	// LevelInfo is used for scheduling and job progress messages.
	LevelInfo
	// LevelWarn is used for skipped plan entries and dropped log rows.
	LevelWarn
	// LevelError is used for aborted jobs and failed remote calls.
	LevelError
	// LevelFatal is used for messages that terminate the process.
	LevelFatal
)

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// logLevel holds the current global level. Jobs log from many goroutines, so it is accessed atomically.
var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LevelInfo))
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
}

// ParseLogLevel converts a level name ("DEBUG", "INFO", "WARN", "ERROR", "FATAL", case-insensitive)
// into a LogLevel. The boolean result is false for unknown names.
func ParseLogLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// SetLogLevel sets the global log level.
// If an invalid value is specified, INFO is used and a warning is printed to standard output.
func SetLogLevel(level string) {
	lvl, ok := ParseLogLevel(level)
	if !ok {
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
	}
	logLevel.Store(int32(lvl))
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

// SetOutput redirects all log output. Tests use it to capture messages.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	log.SetOutput(w)
}

func enabled(l LogLevel) bool {
	return LogLevel(logLevel.Load()) <= l
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if enabled(LevelError) {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
