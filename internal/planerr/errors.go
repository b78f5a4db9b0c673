// Package planerr defines the typed failures raised while analyzing and
// planning a statement.
//
// Every failure is an *Error carrying a Kind and the offending subject
// (column, source or expression text). The exported sentinels match any
// *Error of the same kind through errors.Is:
//
//	if errors.Is(err, planerr.ErrAmbiguousColumn) { ... }
package planerr

import (
	"errors"
	"fmt"
)

// Kind classifies a planning failure.
type Kind int

const (
	UnresolvedColumn Kind = iota + 1
	AmbiguousColumn
	DuplicateQualifiedField
	UnsupportedJoinCondition
	UnconnectedSource
	TypeMismatch
	MissingSink
	UnknownSource
	UngroupedColumn
	UnknownFunction
)

// String returns the error class name used in messages and wire error codes.
func (k Kind) String() string {
	switch k {
	case UnresolvedColumn:
		return "UnresolvedColumnError"
	case AmbiguousColumn:
		return "AmbiguousColumnError"
	case DuplicateQualifiedField:
		return "DuplicateQualifiedFieldError"
	case UnsupportedJoinCondition:
		return "UnsupportedJoinConditionError"
	case UnconnectedSource:
		return "UnconnectedSourceError"
	case TypeMismatch:
		return "TypeMismatchError"
	case MissingSink:
		return "MissingSinkError"
	case UnknownSource:
		return "UnknownSourceError"
	case UngroupedColumn:
		return "UngroupedColumnError"
	case UnknownFunction:
		return "UnknownFunctionError"
	default:
		return "PlanningError"
	}
}

// Error is a planning failure.
type Error struct {
	Kind    Kind
	Subject string // offending column, source or expression
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Is reports whether target is an *Error of the same kind. A target with a
// subject only matches errors about that subject.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Subject == "" || t.Subject == e.Subject
}

// Sentinels for errors.Is.
var (
	ErrUnresolvedColumn         = &Error{Kind: UnresolvedColumn}
	ErrAmbiguousColumn          = &Error{Kind: AmbiguousColumn}
	ErrDuplicateQualifiedField  = &Error{Kind: DuplicateQualifiedField}
	ErrUnsupportedJoinCondition = &Error{Kind: UnsupportedJoinCondition}
	ErrUnconnectedSource        = &Error{Kind: UnconnectedSource}
	ErrTypeMismatch             = &Error{Kind: TypeMismatch}
	ErrMissingSink              = &Error{Kind: MissingSink}
	ErrUnknownSource            = &Error{Kind: UnknownSource}
	ErrUngroupedColumn          = &Error{Kind: UngroupedColumn}
	ErrUnknownFunction          = &Error{Kind: UnknownFunction}
)

// New creates an error of the given kind about subject.
func New(kind Kind, subject, msg string) *Error {
	return &Error{Kind: kind, Subject: subject, Message: msg}
}

// Newf creates an error with a formatted message.
func Newf(kind Kind, subject, format string, args ...any) *Error {
	return &Error{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or 0 if err is not a planning error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
