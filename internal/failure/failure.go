// Package failure defines the structured error kinds surfaced by the
// reconciliation core. Callers switch on Kind instead of parsing messages.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// Unknown is reported for errors that carry no failure.Error.
	Unknown Kind = iota
	// NotFound means a source file is missing.
	NotFound
	// SchemaDrift means a data column has no schema entry.
	SchemaDrift
	// MalformedInput means a source file does not follow its format.
	MalformedInput
	// Coercion means a cell could not be used as the requested type.
	Coercion
	// Collaborator means an external service (liftover, HTTP) failed.
	Collaborator
	// Write means an output could not be written.
	Write
	// Precondition means a pipeline step ran before its prerequisite.
	Precondition
	// Collision means two sources still share a column name after suffixing.
	Collision
)

var kindNames = map[Kind]string{
	Unknown:        "unknown",
	NotFound:       "not-found",
	SchemaDrift:    "schema-drift",
	MalformedInput: "malformed-input",
	Coercion:       "coercion",
	Collaborator:   "collaborator",
	Write:          "write",
	Precondition:   "precondition",
	Collision:      "collision",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a failure with a kind, a message and the offending identifier
// (file path, table/column name, variant string).
type Error struct {
	Kind    Kind
	Subject string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Subject != "" {
		msg += " " + e.Subject
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without a cause.
func New(kind Kind, subject, format string, args ...any) *Error {
	return &Error{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around a cause.
func Wrap(kind Kind, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

// KindOf returns the kind of the first failure.Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err carries a failure of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
