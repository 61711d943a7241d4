// Package errs defines the error taxonomy shared by the hash container, its
// codecs, the schema engine and the validator.
//
// Every failure is reported as an *Error carrying a Kind, so callers can
// branch with errors.Is against the sentinel of that kind:
//
//	if errors.Is(err, errs.ErrPathNotFound) { ... }
//
// Validation can aggregate violations into a List, which unwraps to all of
// its members.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error.
type Kind uint8

const (
	KindUnknown Kind = iota
	TypeMismatch
	PathNotFound
	CorruptData
	SyntaxError
	SchemaError
	MissingMandatoryElement
	AccessViolation
	StateViolation
	ConstraintViolation
	UnknownElement
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case TypeMismatch:
		return "TypeMismatch"
	case PathNotFound:
		return "PathNotFound"
	case CorruptData:
		return "CorruptData"
	case SyntaxError:
		return "SyntaxError"
	case SchemaError:
		return "SchemaError"
	case MissingMandatoryElement:
		return "MissingMandatoryElement"
	case AccessViolation:
		return "AccessViolation"
	case StateViolation:
		return "StateViolation"
	case ConstraintViolation:
		return "ConstraintViolation"
	case UnknownElement:
		return "UnknownElement"
	default:
		return "Unknown"
	}
}

// Sentinels, one per kind.
var (
	ErrTypeMismatch            = errors.New("type mismatch")
	ErrPathNotFound            = errors.New("path not found")
	ErrCorruptData             = errors.New("corrupt data")
	ErrSyntax                  = errors.New("syntax error")
	ErrSchema                  = errors.New("schema error")
	ErrMissingMandatoryElement = errors.New("missing mandatory element")
	ErrAccessViolation         = errors.New("access violation")
	ErrStateViolation          = errors.New("state violation")
	ErrConstraintViolation     = errors.New("constraint violation")
	ErrUnknownElement          = errors.New("unknown element")
)

// Sentinel returns the sentinel error of the kind, or nil for KindUnknown.
func (k Kind) Sentinel() error {
	switch k {
	case TypeMismatch:
		return ErrTypeMismatch
	case PathNotFound:
		return ErrPathNotFound
	case CorruptData:
		return ErrCorruptData
	case SyntaxError:
		return ErrSyntax
	case SchemaError:
		return ErrSchema
	case MissingMandatoryElement:
		return ErrMissingMandatoryElement
	case AccessViolation:
		return ErrAccessViolation
	case StateViolation:
		return ErrStateViolation
	case ConstraintViolation:
		return ErrConstraintViolation
	case UnknownElement:
		return ErrUnknownElement
	default:
		return nil
	}
}

// Error is a classified error with optional location context.
type Error struct {
	Kind Kind

	// Path is the dotted path of the offending element, if any.
	Path string

	// Offset is the byte offset into codec input, or -1.
	Offset int

	// Line and Column locate a text parse failure (1-based, 0 if unknown).
	Line   int
	Column int

	Message string

	// Err is an optional underlying cause.
	Err error
}

// New creates an error of the given kind at path.
func New(kind Kind, path, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Path:    path,
		Offset:  -1,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an error of the given kind with an underlying cause.
func Wrap(kind Kind, path string, err error, format string, args ...any) *Error {
	e := New(kind, path, format, args...)
	e.Err = err
	return e
}

// Corrupt creates a CorruptData error at a byte offset.
func Corrupt(offset int, format string, args ...any) *Error {
	e := New(CorruptData, "", format, args...)
	e.Offset = offset
	return e
}

// Syntax creates a SyntaxError at a text location.
func Syntax(line, column int, format string, args ...any) *Error {
	e := New(SyntaxError, "", format, args...)
	e.Line = line
	e.Column = column
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	switch {
	case e.Line > 0 && e.Column > 0:
		fmt.Fprintf(&b, " at line %d, column %d", e.Line, e.Column)
	case e.Line > 0:
		fmt.Fprintf(&b, " at line %d", e.Line)
	case e.Offset >= 0:
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's kind.
func (e *Error) Is(target error) bool {
	if s := e.Kind.Sentinel(); s != nil && target == s {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Kind == e.Kind && (t.Path == "" || t.Path == e.Path)
	}
	return false
}

// WithPath returns a copy of the error located at path.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// KindOf returns the kind of the first *Error found in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindUnknown, false
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// List aggregates several errors in the order they were found.
type List []*Error

// Error implements the error interface.
func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d errors: %s", len(l), strings.Join(msgs, "; "))
}

// Unwrap exposes all members to errors.Is and errors.As.
func (l List) Unwrap() []error {
	out := make([]error, len(l))
	for i, e := range l {
		out[i] = e
	}
	return out
}

// Kinds returns the kind of every member.
func (l List) Kinds() []Kind {
	out := make([]Kind, len(l))
	for i, e := range l {
		out[i] = e.Kind
	}
	return out
}

// Err returns nil for an empty list, the single member for a list of one and
// the list itself otherwise.
func (l List) Err() error {
	switch len(l) {
	case 0:
		return nil
	case 1:
		return l[0]
	default:
		return l
	}
}
