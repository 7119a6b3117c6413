// Package etlerr defines the error kinds a pipeline run can fail with.
package etlerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind categorises a pipeline failure
type Kind string

const (
	KindInvalidDateFormat Kind = "InvalidDateFormat"
	KindSourceRead        Kind = "SourceReadError"
	KindMissingColumn     Kind = "MissingColumnError"
	KindNumericCoercion   Kind = "NumericCoercionError"
	KindWrite             Kind = "WriteError"
	KindArchive           Kind = "ArchiveError"
	KindConfig            Kind = "ConfigError"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidDateFormat = &Error{Kind: KindInvalidDateFormat}
	ErrSourceRead        = &Error{Kind: KindSourceRead}
	ErrMissingColumn     = &Error{Kind: KindMissingColumn}
	ErrNumericCoercion   = &Error{Kind: KindNumericCoercion}
	ErrWrite             = &Error{Kind: KindWrite}
	ErrArchive           = &Error{Kind: KindArchive}
	ErrConfig            = &Error{Kind: KindConfig}
)

// Error is a structured pipeline error
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString("]")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the cause of the error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// With adds a context field and returns the receiver
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates an error of the given kind
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps cause with a kind. A nil cause returns nil.
func Wrap(cause error, kind Kind, format string, args ...any) *Error {
	if cause == nil {
		return nil
	}
	e := New(kind, format, args...)
	e.Cause = cause
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
