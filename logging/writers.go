package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleWriter writes log entries to a stream, stderr by default
type ConsoleWriter struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewConsoleWriter creates a new console writer that writes to stderr
func NewConsoleWriter() *ConsoleWriter {
	return &ConsoleWriter{writer: os.Stderr}
}

// NewStreamWriter creates a console writer over any io.Writer
func NewStreamWriter(w io.Writer) *ConsoleWriter {
	return &ConsoleWriter{writer: w}
}

// Write writes data to the stream
func (w *ConsoleWriter) Write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.writer.Write(data)
	return err
}

// Flush syncs the stream when it is a file
func (w *ConsoleWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if f, ok := w.writer.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		return f.Sync()
	}
	return nil
}

// Close does nothing: the stream is owned by the caller
func (w *ConsoleWriter) Close() error {
	return nil
}

// GetName returns the name of the writer
func (w *ConsoleWriter) GetName() string {
	return "console"
}

// FileWriter appends log entries to a file
type FileWriter struct {
	mu       sync.Mutex
	file     *os.File
	filePath string
}

// NewFileWriter creates a new file writer
func NewFileWriter(filePath string) (*FileWriter, error) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &FileWriter{
		file:     file,
		filePath: filePath,
	}, nil
}

// Write writes data to the file
func (w *FileWriter) Write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.file.Write(data)
	return err
}

// Flush flushes the file writer
func (w *FileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Sync()
}

// Close closes the file writer
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Close()
}

// GetName returns the name of the writer
func (w *FileWriter) GetName() string {
	return fmt.Sprintf("file:%s", w.filePath)
}

// NullWriter is a writer that discards all log entries
type NullWriter struct{}

// NewNullWriter creates a new null writer
func NewNullWriter() *NullWriter {
	return &NullWriter{}
}

// Write discards the data
func (w *NullWriter) Write(data []byte) error {
	return nil
}

// Flush does nothing
func (w *NullWriter) Flush() error {
	return nil
}

// Close does nothing
func (w *NullWriter) Close() error {
	return nil
}

// GetName returns the name of the writer
func (w *NullWriter) GetName() string {
	return "null"
}
