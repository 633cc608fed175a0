package repl

import (
	"fmt"
	"io"

	"opzterm/errors"
)

// ANSI color codes
var colors = map[string]string{
	"primary":      "\033[36m", // Cyan
	"continuation": "\033[90m", // Dark gray
	"success":      "\033[32m", // Green
	"error":        "\033[31m", // Red
	"info":         "\033[34m", // Blue
	"reset":        "\033[0m",
}

// DisplayManager formats prompts, results and errors
type DisplayManager struct {
	out       io.Writer
	useColors bool
}

// NewDisplayManager creates a display manager writing to out
func NewDisplayManager(out io.Writer, useColors bool) *DisplayManager {
	return &DisplayManager{out: out, useColors: useColors}
}

func (dm *DisplayManager) paint(kind, text string) string {
	if !dm.useColors {
		return text
	}
	return colors[kind] + text + colors["reset"]
}

// Prompt returns the primary or continuation prompt
func (dm *DisplayManager) Prompt(text string, continuation bool) string {
	if continuation {
		return dm.paint("continuation", text)
	}
	return dm.paint("primary", text)
}

// Result prints a translation result
func (dm *DisplayManager) Result(text string) {
	fmt.Fprintln(dm.out, dm.paint("success", text))
}

// Info prints a neutral message
func (dm *DisplayManager) Info(format string, args ...interface{}) {
	fmt.Fprintln(dm.out, dm.paint("info", fmt.Sprintf(format, args...)))
}

// Error prints an error with its line when known
func (dm *DisplayManager) Error(err error) {
	ce, ok := errors.AsCompileError(err)
	if !ok {
		fmt.Fprintln(dm.out, dm.paint("error", fmt.Sprintf("Error: %v", err)))
		return
	}

	msg := fmt.Sprintf("[%s/%s] %s", ce.Kind, ce.Code, ce.Message)
	if ce.Token != "" {
		msg += fmt.Sprintf(" near '%s'", ce.Token)
	}
	if ce.Line > 0 {
		msg = fmt.Sprintf("Error at line %d %s", ce.Line, msg)
	} else {
		msg = "Error " + msg
	}
	fmt.Fprintln(dm.out, dm.paint("error", msg))
}
