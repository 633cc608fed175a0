package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorKind represents the class of a translation fault
type ErrorKind string

const (
	KindMalformedExpression ErrorKind = "MALFORMED_EXPRESSION"
	KindMalformedForHeader  ErrorKind = "MALFORMED_FOR_HEADER"
	KindUnknownToken        ErrorKind = "UNKNOWN_TOKEN"
	KindStackUnderflow      ErrorKind = "STACK_UNDERFLOW"
	KindSyntax              ErrorKind = "SYNTAX"
	KindCodec               ErrorKind = "CODEC"
	KindSystem              ErrorKind = "SYSTEM"
)

// Stage names the pipeline pass that raised an error
type Stage string

const (
	StageScan        Stage = "scan"
	StageValidate    Stage = "validate"
	StageLinearize   Stage = "linearize"
	StageLower       Stage = "lower"
	StageReconstruct Stage = "reconstruct"
	StageDecode      Stage = "decode"
	StageVerify      Stage = "verify"
)

// CompileError represents a structured error with positional information
type CompileError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Kind    ErrorKind              `json:"kind"`
	Stage   Stage                  `json:"stage,omitempty"`
	Line    int                    `json:"line,omitempty"`
	Token   string                 `json:"token,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *CompileError) Error() string {
	var builder strings.Builder

	// Format: [KIND][CODE] message
	builder.WriteString(fmt.Sprintf("[%s][%s] %s", e.Kind, e.Code, e.Message))

	if e.Line > 0 {
		builder.WriteString(fmt.Sprintf(" line %d", e.Line))
	}
	if e.Token != "" {
		builder.WriteString(fmt.Sprintf(" token '%s'", e.Token))
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		builder.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}
	if e.Cause != nil {
		builder.WriteString(": " + e.Cause.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
// An empty Code on the target matches any code of the same kind.
func (e *CompileError) Is(target error) bool {
	other, ok := target.(*CompileError)
	if !ok {
		return false
	}
	if other.Kind != e.Kind {
		return false
	}
	return other.Code == "" || other.Code == e.Code
}

// WithContext adds context information to the error
func (e *CompileError) WithContext(key string, value interface{}) *CompileError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithLine sets the originating source line
func (e *CompileError) WithLine(line int) *CompileError {
	e.Line = line
	return e
}

// WithToken sets the offending token
func (e *CompileError) WithToken(token string) *CompileError {
	e.Token = token
	return e
}

// WithStage sets the pass that produced the error
func (e *CompileError) WithStage(stage Stage) *CompileError {
	e.Stage = stage
	return e
}

// Wrap wraps another error
func (e *CompileError) Wrap(err error) *CompileError {
	e.Cause = err
	return e
}

func newError(kind ErrorKind, code, message string) *CompileError {
	return &CompileError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// NewMalformedExpression creates an error for unbalanced or unconsumed expressions
func NewMalformedExpression(code, message string) *CompileError {
	return newError(KindMalformedExpression, code, message)
}

// NewMalformedForHeader creates an error for a for header that is not init; cond; incr
func NewMalformedForHeader(code, message string) *CompileError {
	return newError(KindMalformedForHeader, code, message)
}

// NewUnknownToken creates an error for a token that is neither operand, operator, bracket nor marker
func NewUnknownToken(token string, line int) *CompileError {
	return newError(KindUnknownToken, "UNKNOWN_TOKEN", "token is not an operand, operator, bracket or marker").
		WithToken(token).
		WithLine(line)
}

// NewStackUnderflow creates an error for a pop from an empty stack
func NewStackUnderflow(stack string, token string, line int) *CompileError {
	return newError(KindStackUnderflow, "STACK_UNDERFLOW", fmt.Sprintf("%s stack is empty", stack)).
		WithToken(token).
		WithLine(line).
		WithContext("stack", stack)
}

// NewSyntaxError creates a validator error with expected-vs-found information
func NewSyntaxError(line int, expected, found string) *CompileError {
	return newError(KindSyntax, "UNEXPECTED_TOKEN", fmt.Sprintf("expected %s, found '%s'", expected, found)).
		WithLine(line).
		WithToken(found)
}

// NewCodecError creates an error raised while encoding or decoding a postfix program
func NewCodecError(codec, code, message string) *CompileError {
	return newError(KindCodec, code, message).WithContext("codec", codec)
}

// NewSystemError creates a new system error
func NewSystemError(code, message string) *CompileError {
	return newError(KindSystem, code, message)
}

// WrapError wraps an existing error into a system CompileError
func WrapError(err error, code, message string) *CompileError {
	return NewSystemError(code, message).Wrap(err)
}

// AsCompileError walks the wrap chain and returns the first CompileError
func AsCompileError(err error) (*CompileError, bool) {
	for err != nil {
		if ce, ok := err.(*CompileError); ok {
			return ce, true
		}
		wrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = wrapper.Unwrap()
	}
	return nil, false
}

// KindOf returns the kind of a CompileError anywhere in the chain, or "" if there is none
func KindOf(err error) ErrorKind {
	if ce, ok := AsCompileError(err); ok {
		return ce.Kind
	}
	return ""
}

// Sentinels usable with the standard errors.Is
var (
	ErrMalformedExpression = &CompileError{Kind: KindMalformedExpression}
	ErrMalformedForHeader  = &CompileError{Kind: KindMalformedForHeader}
	ErrUnknownToken        = &CompileError{Kind: KindUnknownToken}
	ErrStackUnderflow      = &CompileError{Kind: KindStackUnderflow}
	ErrSyntax              = &CompileError{Kind: KindSyntax}
	ErrCodec               = &CompileError{Kind: KindCodec}
)
