package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent // Disables all logging
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelSilent:
		return "SILENT"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level string.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "SILENT", "OFF", "NONE":
		return LevelSilent
	default:
		return LevelInfo
	}
}

// Fields represents structured log fields.
type Fields map[string]interface{}

// Format specifies the log output format.
type Format int

const (
	FormatText Format = iota // Human-readable text format
	FormatJSON               // JSON format for log aggregation
)

// Logger provides structured logging with levels.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	level    Level
	format   Format
	fields   Fields
	name     string
	timeFunc func() time.Time
}

// LoggerOption configures a logger.
type LoggerOption func(*Logger)

// WithOutput sets the output writer.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *Logger) { l.out = w }
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *Logger) { l.level = level }
}

// WithFormat sets the output format.
func WithFormat(format Format) LoggerOption {
	return func(l *Logger) { l.format = format }
}

// WithFields sets default fields for all log entries.
func WithFields(fields Fields) LoggerOption {
	return func(l *Logger) { l.fields = fields }
}

// NewLogger creates a new logger with the given options.
func NewLogger(opts ...LoggerOption) *Logger {
	l := &Logger{
		out:      os.Stdout,
		level:    LevelInfo,
		format:   FormatText,
		fields:   make(Fields),
		timeFunc: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// With returns a new logger with additional fields.
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		out:      l.out,
		level:    l.level,
		format:   l.format,
		fields:   merged,
		name:     l.name,
		timeFunc: l.timeFunc,
	}
}

// Named returns a new logger with the given name appended.
func (l *Logger) Named(name string) *Logger {
	if l.name != "" {
		name = l.name + "." + name
	}
	return &Logger{
		out:      l.out,
		level:    l.level,
		format:   l.format,
		fields:   l.fields,
		name:     name,
		timeFunc: l.timeFunc,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...Fields) { l.log(LevelDebug, msg, fields...) }

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...Fields) { l.log(LevelInfo, msg, fields...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...Fields) { l.log(LevelWarn, msg, fields...) }

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...Fields) { l.log(LevelError, msg, fields...) }

func (l *Logger) log(level Level, msg string, extra ...Fields) {
	if level < l.level {
		return
	}

	all := make(Fields, len(l.fields))
	for k, v := range l.fields {
		all[k] = v
	}
	for _, f := range extra {
		for k, v := range f {
			all[k] = v
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == FormatJSON {
		l.writeJSON(level, msg, all)
		return
	}
	l.writeText(level, msg, all)
}

func (l *Logger) writeJSON(level Level, msg string, fields Fields) {
	entry := make(map[string]interface{}, len(fields)+4)
	entry["time"] = l.timeFunc().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg
	if l.name != "" {
		entry["logger"] = l.name
	}
	for k, v := range fields {
		entry[k] = v
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.out, "LOG_ERROR: %v\n", err)
		return
	}
	l.out.Write(data)
	l.out.Write([]byte{'\n'})
}

func (l *Logger) writeText(level Level, msg string, fields Fields) {
	var b strings.Builder
	b.WriteString(l.timeFunc().Format("15:04:05.000"))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%-5s", level.String()))
	b.WriteString(" ")
	if l.name != "" {
		b.WriteString("[")
		b.WriteString(l.name)
		b.WriteString("] ")
	}
	b.WriteString(msg)
	if len(fields) > 0 {
		b.WriteString(" ")
		b.WriteString(formatFields(fields))
	}
	b.WriteString("\n")
	l.out.Write([]byte(b.String()))
}

// formatFields formats fields as sorted key=value pairs.
func formatFields(fields Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return NewLogger(WithLevel(LevelSilent), WithOutput(io.Discard))
}

// TestLogger returns a debug-level text logger writing to w.
func TestLogger(w io.Writer) *Logger {
	return NewLogger(WithOutput(w), WithLevel(LevelDebug), WithFormat(FormatText))
}
