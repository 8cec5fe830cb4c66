package obj

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrFetch              = errors.New("fetch error")
	ErrMalformedReference = errors.New("malformed face reference")
	ErrMaterialNotFound   = errors.New("material not found")
	ErrIndexOutOfRange    = errors.New("index out of range")
)

// Error is returned by every parse and build step.
type Error struct {
	Kind      error
	Line      int // 1-based, 0 when unknown
	Directive string
	Token     string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Directive != "" {
		msg = e.Directive + ": " + msg
	}
	if e.Token != "" {
		msg += fmt.Sprintf(" %q", e.Token)
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func errorf(kind error, directive, token string, cause error) *Error {
	return &Error{Kind: kind, Directive: directive, Token: token, Err: cause}
}
