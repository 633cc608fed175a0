package logging

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// NewFormatter returns the formatter registered under name ("text" or "json")
func NewFormatter(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return NewTextFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	}
	return nil, fmt.Errorf("unknown log format '%s'", name)
}

// JSONFormatter formats log entries as JSON, one object per line
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format formats a log entry as JSON
func (f *JSONFormatter) Format(entry *LogEntry) ([]byte, error) {
	output := make(map[string]interface{}, 5)
	output["timestamp"] = entry.Timestamp.Format(time.RFC3339)
	output["level"] = entry.Level.String()
	output["message"] = entry.Message

	if entry.Component != "" {
		output["component"] = entry.Component
	}
	if len(entry.Fields) > 0 {
		output["fields"] = entry.Fields
	}

	data, err := json.Marshal(output)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// GetName returns the name of the formatter
func (f *JSONFormatter) GetName() string {
	return "json"
}

// TextFormatter formats log entries as plain text
type TextFormatter struct {
	// IncludeTimestamp controls whether to include the timestamp
	IncludeTimestamp bool
}

// NewTextFormatter creates a new text formatter with timestamps
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{IncludeTimestamp: true}
}

// Format formats a log entry as plain text
func (f *TextFormatter) Format(entry *LogEntry) ([]byte, error) {
	var sb strings.Builder

	if f.IncludeTimestamp {
		sb.WriteString(fmt.Sprintf("[%s] ", entry.Timestamp.Format("2006-01-02 15:04:05.000")))
	}
	sb.WriteString(fmt.Sprintf("[%s] ", entry.Level.String()))
	if entry.Component != "" {
		sb.WriteString(fmt.Sprintf("[%s] ", entry.Component))
	}

	sb.WriteString(entry.Message)

	if line, ok := entry.Fields["line"].(int); ok {
		sb.WriteString(fmt.Sprintf(" (at line %d)", line))
	}

	if rest := formatFields(entry.Fields, "line"); rest != "" {
		sb.WriteString(" " + rest)
	}

	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

// GetName returns the name of the formatter
func (f *TextFormatter) GetName() string {
	return "text"
}

// formatFields renders fields sorted by key, skipping the excluded ones
func formatFields(fields map[string]interface{}, exclude ...string) string {
	keys := make([]string, 0, len(fields))
next:
	for k := range fields {
		for _, e := range exclude {
			if k == e {
				continue next
			}
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
