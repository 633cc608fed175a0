package postfix

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"opzterm/errors"
	"opzterm/token"
)

// TextCodec is the plain-text form: boilerplate first, then one postfix line per line
type TextCodec struct {
	surface token.Surface
}

// NewTextCodec creates a text codec writing markers in the given surface
func NewTextCodec(surface token.Surface) *TextCodec {
	if surface == "" {
		surface = token.SurfaceCyrillic
	}
	return &TextCodec{surface: surface}
}

// Name returns the name of the codec
func (c *TextCodec) Name() string {
	return "text"
}

// Encode writes the program as text
func (c *TextCodec) Encode(p *Program) ([]byte, error) {
	var buf bytes.Buffer
	for _, h := range p.Header {
		buf.WriteString(h)
		buf.WriteByte('\n')
	}
	for _, line := range p.Strings(c.surface) {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Decode reads postfix text. Boilerplate lines go to the header, blank lines are skipped.
func (c *TextCodec) Decode(data []byte) (*Program, error) {
	lines, err := splitLines(data)
	if err != nil {
		return nil, err
	}
	return ParseLines(lines)
}

// ParseLines classifies already split postfix text lines
func ParseLines(lines []string) (*Program, error) {
	p := &Program{}
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if IsBoilerplate(line) {
			p.Header = append(p.Header, line)
			continue
		}
		tokens, err := token.Words(strings.Fields(line), lineNo)
		if err != nil {
			if ce, ok := errors.AsCompileError(err); ok {
				ce.WithStage(errors.StageDecode)
			}
			return nil, err
		}
		p.Add(lineNo, tokens...)
	}
	return p, nil
}

// maxLineSize bounds one postfix text line
const maxLineSize = 1024 * 1024

func splitLines(data []byte) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewCodecError("text", "LINE_TOO_LONG",
			fmt.Sprintf("cannot read line %d (limit %d bytes)", len(lines)+1, maxLineSize)).
			WithLine(len(lines) + 1).
			WithStage(errors.StageDecode).
			Wrap(err)
	}
	return lines, nil
}
