package postfix

import (
	"encoding/json"
	"fmt"

	"opzterm/errors"
	"opzterm/token"
)

// JSONCodec stores programs as structured JSON
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

type jsonToken struct {
	Kind  string `json:"kind"`
	Text  string `json:"text,omitempty"`
	Arity int    `json:"arity,omitempty"`
}

type jsonLine struct {
	Source int         `json:"source,omitempty"`
	Tokens []jsonToken `json:"tokens"`
}

type jsonProgram struct {
	Header []string   `json:"header,omitempty"`
	Lines  []jsonLine `json:"lines"`
}

// Name returns the name of the codec
func (c *JSONCodec) Name() string {
	return "json"
}

// Encode converts a program to indented JSON
func (c *JSONCodec) Encode(p *Program) ([]byte, error) {
	out := jsonProgram{Header: p.Header, Lines: make([]jsonLine, 0, len(p.Lines))}
	for _, l := range p.Lines {
		jl := jsonLine{Source: l.Source, Tokens: make([]jsonToken, 0, len(l.Tokens))}
		for _, t := range l.Tokens {
			jt := jsonToken{Kind: t.Kind.String(), Text: t.Text}
			switch t.Kind {
			case token.KindMarker:
				jt.Text = t.Marker.String()
			case token.KindAccess:
				jt.Text = ""
				jt.Arity = t.Arity
			}
			jl.Tokens = append(jl.Tokens, jt)
		}
		out.Lines = append(out.Lines, jl)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, errors.NewCodecError("json", "ENCODE_FAILED", err.Error())
	}
	return data, nil
}

// Decode converts JSON back to a program
func (c *JSONCodec) Decode(data []byte) (*Program, error) {
	var in jsonProgram
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, errors.NewCodecError("json", "DECODE_FAILED", err.Error())
	}
	p := &Program{Header: in.Header}
	for _, jl := range in.Lines {
		tokens := make([]token.Token, 0, len(jl.Tokens))
		for _, jt := range jl.Tokens {
			t, err := decodeJSONToken(jt, jl.Source)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, t)
		}
		p.Add(jl.Source, tokens...)
	}
	return p, nil
}

func decodeJSONToken(jt jsonToken, line int) (token.Token, error) {
	switch jt.Kind {
	case "access":
		if jt.Arity < 1 {
			return token.Token{}, errors.NewCodecError("json", "BAD_ACCESS_ARITY", fmt.Sprintf("arity %d", jt.Arity)).WithLine(line)
		}
		t := token.Access(jt.Arity)
		t.Line = line
		return t, nil
	case "marker":
		m, ok := token.LookupMarker(jt.Text)
		if !ok || m == token.MarkerAccess {
			return token.Token{}, errors.NewUnknownToken(jt.Text, line).WithStage(errors.StageDecode)
		}
		t := token.MarkerToken(m)
		t.Line = line
		return t, nil
	}
	t, err := token.Classify(jt.Text, line)
	if err != nil {
		return token.Token{}, err
	}
	if t.Kind.String() != jt.Kind {
		return token.Token{}, errors.NewCodecError("json", "KIND_MISMATCH",
			fmt.Sprintf("token '%s' is %s, not %s", jt.Text, t.Kind, jt.Kind)).WithLine(line)
	}
	return t, nil
}
