package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type Config struct {
	Level  string
	Format string // "json" or "text"
}

// Logger is a leveled key/value logger. Components receive one via their
// constructor; there is no package-level instance.
type Logger struct {
	level  Level
	format string
	base   []interface{}
	logger *log.Logger
}

// New creates a new logger instance
func New(cfg Config) *Logger {
	return &Logger{
		level:  parseLevel(cfg.Level),
		format: cfg.Format,
		logger: log.New(os.Stdout, "", 0),
	}
}

// With returns a child logger that attaches the given key/value pairs to
// every entry. Used to tag a component once at construction time.
func (l *Logger) With(fields ...interface{}) *Logger {
	child := *l
	child.base = append(append([]interface{}{}, l.base...), fields...)
	return &child
}

func parseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if level < l.level {
		return
	}

	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"level":     levelString(level),
		"message":   msg,
	}

	all := append(append([]interface{}{}, l.base...), fields...)
	if len(all)%2 == 0 {
		for i := 0; i < len(all); i += 2 {
			if key, ok := all[i].(string); ok {
				entry[key] = all[i+1]
			}
		}
	}

	if l.format == "json" {
		data, _ := json.Marshal(entry)
		l.logger.Println(string(data))
		return
	}

	// Text format: fixed prefix, then fields in stable order
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s: %s",
		entry["timestamp"],
		entry["level"],
		entry["message"]))

	keys := make([]string, 0, len(entry))
	for k := range entry {
		if k != "timestamp" && k != "level" && k != "message" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(" %s=%v", k, entry[k]))
	}
	l.logger.Println(sb.String())
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(ErrorLevel, msg, fields...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, fields ...interface{}) {
	l.log(FatalLevel, msg, fields...)
	os.Exit(1)
}

func levelString(level Level) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
