package parse

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ParseError.
type ErrorKind int

// Parse error kinds.
const (
	EmptyCommand ErrorKind = iota + 1
	UnknownVerb
	MissingOperand
	UnrecognizedRegister
	InvalidValue
	ReadOnlyRegister
	TooManyOperands
	InvalidLength
)

var kindNames = map[ErrorKind]string{
	EmptyCommand:         "empty command",
	UnknownVerb:          "unknown command",
	MissingOperand:       "missing operand",
	UnrecognizedRegister: "unrecognized register",
	InvalidValue:         "invalid value",
	ReadOnlyRegister:     "read-only register",
	TooManyOperands:      "too many operands",
	InvalidLength:        "invalid length",
}

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind %d", int(k))
}

// ParseError reports a rejected command line. Nothing is sent for it.
type ParseError struct {
	Kind  ErrorKind
	Token string
}

// Error implements error.
func (e *ParseError) Error() string {
	if e.Token == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Token)
}

// Is matches another ParseError of the same Kind.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind && (t.Token == "" || t.Token == e.Token)
}

// ErrHelp is returned by Parse for the help verbs.
var ErrHelp = errors.New("help requested")

// KindOf returns the Kind of a ParseError, 0 for other errors.
func KindOf(err error) ErrorKind {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Kind
	}
	return 0
}

func newError(kind ErrorKind, token string) error {
	return &ParseError{Kind: kind, Token: token}
}
