package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"opzterm/errors"
)

// LogLevel represents the severity level of a log entry
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configuration string to a level; unknown values map to info
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// LogField represents a key-value pair for structured logging
type LogField struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger defines the interface for structured logging
type Logger interface {
	// Debug logs a debug message
	Debug(msg string, fields ...LogField)

	// Info logs an info message
	Info(msg string, fields ...LogField)

	// Warn logs a warning message
	Warn(msg string, fields ...LogField)

	// Error logs an error message
	Error(msg string, fields ...LogField)

	// ErrorCompile logs a translation error, expanding CompileError fields
	ErrorCompile(err error, fields ...LogField)

	// WithFields returns a new logger with the specified fields
	WithFields(fields ...LogField) Logger

	// WithComponent returns a new logger with the specified component
	WithComponent(component string) Logger

	// SetLevel sets the minimum log level
	SetLevel(level LogLevel)

	// GetLevel returns the current minimum log level
	GetLevel() LogLevel
}

// Formatter defines the interface for log formatting
type Formatter interface {
	// Format formats a log entry into a byte slice
	Format(entry *LogEntry) ([]byte, error)

	// GetName returns the name of the formatter
	GetName() string
}

// Writer defines the interface for log output
type Writer interface {
	// Write writes the formatted log entry
	Write(data []byte) error

	// Flush flushes any buffered data
	Flush() error

	// Close closes the writer
	Close() error

	// GetName returns the name of the writer
	GetName() string
}

// LoggerConfig contains configuration for the logger
type LoggerConfig struct {
	Level     LogLevel
	Formatter Formatter
	Writers   []Writer
}

// DefaultLogger is the default implementation of Logger
type DefaultLogger struct {
	mu        *sync.Mutex
	level     *LogLevel
	fields    map[string]interface{}
	component string
	formatter Formatter
	writers   []Writer
}

// NewDefaultLogger creates a logger writing text to stderr at info level
func NewDefaultLogger() *DefaultLogger {
	return NewDefaultLoggerWithConfig(LoggerConfig{Level: LevelInfo})
}

// NewDefaultLoggerWithConfig creates a new default logger with configuration
func NewDefaultLoggerWithConfig(config LoggerConfig) *DefaultLogger {
	level := config.Level
	logger := &DefaultLogger{
		mu:        &sync.Mutex{},
		level:     &level,
		fields:    make(map[string]interface{}),
		formatter: config.Formatter,
		writers:   config.Writers,
	}
	if logger.formatter == nil {
		logger.formatter = NewTextFormatter()
	}
	if logger.writers == nil {
		logger.writers = []Writer{NewConsoleWriter()}
	}
	return logger
}

// NewNullLogger creates a logger that discards everything
func NewNullLogger() *DefaultLogger {
	return NewDefaultLoggerWithConfig(LoggerConfig{
		Level:   LevelError + 1,
		Writers: []Writer{NewNullWriter()},
	})
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(msg string, fields ...LogField) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message
func (l *DefaultLogger) Info(msg string, fields ...LogField) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message
func (l *DefaultLogger) Warn(msg string, fields ...LogField) {
	l.log(LevelWarning, msg, fields...)
}

// Error logs an error message
func (l *DefaultLogger) Error(msg string, fields ...LogField) {
	l.log(LevelError, msg, fields...)
}

// ErrorCompile logs a translation error with its kind, code, stage and line
func (l *DefaultLogger) ErrorCompile(err error, fields ...LogField) {
	ce, ok := errors.AsCompileError(err)
	if !ok {
		l.log(LevelError, err.Error(), append(fields, ErrorField("error", err))...)
		return
	}
	posFields := append(fields,
		StringField("error_kind", string(ce.Kind)),
		StringField("error_code", ce.Code))
	if ce.Stage != "" {
		posFields = append(posFields, StringField("stage", string(ce.Stage)))
	}
	if ce.Line > 0 {
		posFields = append(posFields, IntField("line", ce.Line))
	}
	if ce.Token != "" {
		posFields = append(posFields, StringField("token", ce.Token))
	}
	l.log(LevelError, ce.Message, posFields...)
}

// WithFields returns a new logger with the specified fields
func (l *DefaultLogger) WithFields(fields ...LogField) Logger {
	newLogger := l.copy()
	for _, field := range fields {
		newLogger.fields[field.Key] = field.Value
	}
	return newLogger
}

// WithComponent returns a new logger with the specified component
func (l *DefaultLogger) WithComponent(component string) Logger {
	newLogger := l.copy()
	newLogger.component = component
	return newLogger
}

// SetLevel sets the minimum log level; derived loggers share it
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.level = level
}

// GetLevel returns the current minimum log level
func (l *DefaultLogger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.level
}

// Close flushes and closes every writer
func (l *DefaultLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, w := range l.writers {
		if err := w.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *DefaultLogger) log(level LogLevel, msg string, fields ...LogField) {
	if level < l.GetLevel() {
		return
	}

	entry := &LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Component: l.component,
		Fields:    make(map[string]interface{}, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	for _, field := range fields {
		entry.Fields[field.Key] = field.Value
	}

	data, err := l.formatter.Format(entry)
	if err != nil {
		data = []byte(fmt.Sprintf("failed to format log entry: %v - original message: %s\n", err, msg))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, writer := range l.writers {
		if err := writer.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write log: %v\n", err)
		}
	}
}

func (l *DefaultLogger) copy() *DefaultLogger {
	newLogger := &DefaultLogger{
		mu:        l.mu,
		level:     l.level,
		fields:    make(map[string]interface{}, len(l.fields)),
		component: l.component,
		formatter: l.formatter,
		writers:   l.writers,
	}
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	return newLogger
}

// Field creates a new field
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// StringField creates a new string field
func StringField(key, value string) LogField {
	return LogField{Key: key, Value: value}
}

// IntField creates a new int field
func IntField(key string, value int) LogField {
	return LogField{Key: key, Value: value}
}

// BoolField creates a new bool field
func BoolField(key string, value bool) LogField {
	return LogField{Key: key, Value: value}
}

// ErrorField creates a new error field
func ErrorField(key string, value error) LogField {
	if value == nil {
		return LogField{Key: key, Value: nil}
	}
	return LogField{Key: key, Value: value.Error()}
}

// DurationField creates a new duration field
func DurationField(key string, value time.Duration) LogField {
	return LogField{Key: key, Value: value.String()}
}
