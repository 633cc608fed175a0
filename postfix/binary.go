package postfix

import (
	"fmt"
	"strconv"

	"github.com/funvibe/funbit/pkg/funbit"

	"opzterm/errors"
	"opzterm/token"
)

const (
	binaryMagic   = 0x4F505A // "OPZ"
	binaryVersion = 1
	maxPayload    = 1<<16 - 1
)

// segment kinds of the binary form
const (
	segHeader   = 1
	segOperand  = 2
	segOperator = 3
	segAssign   = 4
	segMarker   = 5
	segAccess   = 6
	segLineEnd  = 7
	segPunct    = 8
)

// BinaryCodec packs programs as a bitstring:
//
//	<<"OPZ", Version:8, (Kind:8, Size:16, Payload:Size/binary)*>>
//
// Every payload is non-empty text: token text, marker name, access arity or source line.
type BinaryCodec struct{}

// NewBinaryCodec creates a new binary codec
func NewBinaryCodec() *BinaryCodec {
	return &BinaryCodec{}
}

// Name returns the name of the codec
func (c *BinaryCodec) Name() string {
	return "binary"
}

// Encode packs a program into bytes
func (c *BinaryCodec) Encode(p *Program) ([]byte, error) {
	builder := funbit.NewBuilder()
	funbit.AddInteger(builder, binaryMagic, funbit.WithSize(24))
	funbit.AddInteger(builder, binaryVersion, funbit.WithSize(8))

	add := func(kind int, payload string) error {
		if payload == "" {
			return errors.NewCodecError("binary", "EMPTY_PAYLOAD", "segment payload must not be empty").
				WithContext("kind", kind)
		}
		if len(payload) > maxPayload {
			return errors.NewCodecError("binary", "PAYLOAD_TOO_LARGE", fmt.Sprintf("payload of %d bytes", len(payload)))
		}
		funbit.AddInteger(builder, kind, funbit.WithSize(8))
		funbit.AddInteger(builder, len(payload), funbit.WithSize(16))
		funbit.AddBinary(builder, []byte(payload))
		return nil
	}

	for _, h := range p.Header {
		if h == "" {
			continue
		}
		if err := add(segHeader, h); err != nil {
			return nil, err
		}
	}

	for _, l := range p.Lines {
		for _, t := range l.Tokens {
			var err error
			switch t.Kind {
			case token.KindOperand:
				err = add(segOperand, t.Text)
			case token.KindOperator:
				err = add(segOperator, t.Text)
			case token.KindAssign:
				err = add(segAssign, t.Text)
			case token.KindMarker:
				err = add(segMarker, t.Marker.String())
			case token.KindAccess:
				err = add(segAccess, strconv.Itoa(t.Arity))
			default:
				err = add(segPunct, t.Text)
			}
			if err != nil {
				return nil, err
			}
		}
		if err := add(segLineEnd, strconv.Itoa(l.Source)); err != nil {
			return nil, err
		}
	}

	bs, err := funbit.Build(builder)
	if err != nil {
		return nil, errors.NewCodecError("binary", "BUILD_FAILED", "cannot build bitstring").Wrap(err)
	}
	return bs.ToBytes(), nil
}

// Decode unpacks bytes produced by Encode
func (c *BinaryCodec) Decode(data []byte) (*Program, error) {
	if len(data) < 4 {
		return nil, errors.NewCodecError("binary", "TRUNCATED", "data is shorter than the preamble")
	}

	var magic, version int
	m := funbit.NewMatcher()
	funbit.Integer(m, &magic, funbit.WithSize(24))
	funbit.Integer(m, &version, funbit.WithSize(8))
	if _, err := funbit.Match(m, funbit.NewBitStringFromBytes(data[:4])); err != nil {
		return nil, errors.NewCodecError("binary", "BAD_PREAMBLE", "cannot match preamble").Wrap(err)
	}
	if magic != binaryMagic {
		return nil, errors.NewCodecError("binary", "BAD_MAGIC", fmt.Sprintf("unexpected magic 0x%06X", magic))
	}
	if version != binaryVersion {
		return nil, errors.NewCodecError("binary", "BAD_VERSION", fmt.Sprintf("unsupported version %d", version))
	}

	rest := data[4:]
	p := &Program{}
	var pending []token.Token
	for len(rest) > 0 {
		kind, payload, tail, err := nextSegment(rest)
		if err != nil {
			return nil, err
		}
		rest = tail

		switch kind {
		case segHeader:
			p.Header = append(p.Header, payload)
		case segLineEnd:
			source, err := strconv.Atoi(payload)
			if err != nil {
				return nil, errors.NewCodecError("binary", "BAD_LINE", "line-end payload is not a number").WithToken(payload)
			}
			for i := range pending {
				pending[i].Line = source
			}
			p.Add(source, pending...)
			pending = nil
		default:
			tok, err := segmentToken(kind, payload)
			if err != nil {
				return nil, err
			}
			pending = append(pending, tok)
		}
	}
	if len(pending) > 0 {
		return nil, errors.NewCodecError("binary", "TRUNCATED", "tokens after the last line end").
			WithContext("tokens", len(pending))
	}
	return p, nil
}

func nextSegment(data []byte) (int, string, []byte, error) {
	if len(data) < 3 {
		return 0, "", nil, errors.NewCodecError("binary", "TRUNCATED", "incomplete segment header")
	}
	var kind, size int
	m := funbit.NewMatcher()
	funbit.Integer(m, &kind, funbit.WithSize(8))
	funbit.Integer(m, &size, funbit.WithSize(16))
	if _, err := funbit.Match(m, funbit.NewBitStringFromBytes(data[:3])); err != nil {
		return 0, "", nil, errors.NewCodecError("binary", "BAD_SEGMENT", "cannot match segment").Wrap(err)
	}
	tail := data[3:]
	if size == 0 || size > len(tail) {
		return 0, "", nil, errors.NewCodecError("binary", "TRUNCATED", "segment payload is cut short").
			WithContext("size", size).
			WithContext("available", len(tail))
	}
	return kind, string(tail[:size]), tail[size:], nil
}

func segmentToken(kind int, payload string) (token.Token, error) {
	switch kind {
	case segOperand:
		if !token.IsOperandText(payload) {
			return token.Token{}, errors.NewUnknownToken(payload, 0).WithStage(errors.StageDecode)
		}
		return token.Operand(payload), nil
	case segOperator:
		if !token.IsBinaryOperator(payload) {
			return token.Token{}, errors.NewUnknownToken(payload, 0).WithStage(errors.StageDecode)
		}
		return token.Operator(payload), nil
	case segAssign:
		return token.Assign(), nil
	case segMarker:
		m, ok := token.LookupMarker(payload)
		if !ok || m == token.MarkerAccess {
			return token.Token{}, errors.NewUnknownToken(payload, 0).WithStage(errors.StageDecode)
		}
		return token.MarkerToken(m), nil
	case segAccess:
		arity, err := strconv.Atoi(payload)
		if err != nil || arity < 1 {
			return token.Token{}, errors.NewCodecError("binary", "BAD_ACCESS_ARITY", "access arity must be a positive integer").
				WithToken(payload)
		}
		return token.Access(arity), nil
	case segPunct:
		return token.Classify(payload, 0)
	}
	return token.Token{}, errors.NewCodecError("binary", "UNKNOWN_SEGMENT", fmt.Sprintf("segment kind %d", kind))
}
