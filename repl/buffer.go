package repl

// MultiLineBuffer collects lines continued with a trailing backslash
type MultiLineBuffer struct {
	lines []string
}

// NewMultiLineBuffer creates an empty buffer
func NewMultiLineBuffer() *MultiLineBuffer {
	return &MultiLineBuffer{}
}

// AddLine appends a line
func (b *MultiLineBuffer) AddLine(line string) {
	b.lines = append(b.lines, line)
}

// Take returns the collected lines and empties the buffer
func (b *MultiLineBuffer) Take() []string {
	lines := b.lines
	b.lines = nil
	return lines
}

// Clear drops everything collected so far
func (b *MultiLineBuffer) Clear() {
	b.lines = nil
}

// IsActive reports whether a continuation is in progress
func (b *MultiLineBuffer) IsActive() bool {
	return len(b.lines) > 0
}

// GetLines returns the collected lines
func (b *MultiLineBuffer) GetLines() []string {
	return b.lines
}
