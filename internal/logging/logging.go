package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogLevel represents the severity of a log message
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

// String returns the lower-case level name.
func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("unknown(%d)", int32(l))
}

// ParseLevel converts a level name to a LogLevel. Unknown names map to
// LevelInfo and ok is false.
func ParseLevel(name string) (level LogLevel, ok bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	for i, n := range levelNames {
		if n == name {
			return LogLevel(i), true
		}
	}
	return LevelInfo, false
}

// levelFromEnv reads DEBUG first, then LOG_LEVEL.
func levelFromEnv() LogLevel {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}
	level, _ := ParseLevel(os.Getenv("LOG_LEVEL"))
	return level
}

var (
	level     atomic.Int32
	levelOnce sync.Once
)

// GetLevel returns the current level, reading the environment on first use.
func GetLevel() LogLevel {
	levelOnce.Do(func() { level.Store(int32(levelFromEnv())) })
	return LogLevel(level.Load())
}

// SetLevel overrides the environment, e.g. for islgen --verbose.
func SetLevel(l LogLevel) {
	levelOnce.Do(func() {})
	level.Store(int32(l))
}

// SetOutput redirects all log output
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func logf(l LogLevel, tag, format string, args []any) {
	if GetLevel() <= l {
		log.Printf(tag+format, args...)
	}
}

// Debug logs when DEBUG or LOG_LEVEL=debug is set.
func Debug(format string, args ...any) { logf(LevelDebug, "[DEBUG] ", format, args) }

// Info logs progress an operator would want to see.
func Info(format string, args ...any) { logf(LevelInfo, "[INFO] ", format, args) }

// Warn logs a degraded but recoverable condition.
func Warn(format string, args ...any) { logf(LevelWarn, "[WARN] ", format, args) }

// Error logs a failed operation.
func Error(format string, args ...any) { logf(LevelError, "[ERROR] ", format, args) }

// Fatal logs and exits with status 1.
func Fatal(format string, args ...any) {
	log.Fatalf("[FATAL] "+format, args...)
}
