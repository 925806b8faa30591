// Package errors defines the error taxonomy shared by the archive,
// reader and plugin layers. Callers classify failures by Kind so that
// "format not supported" stays distinguishable from "file unreadable"
// and from "feature not available".
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	// KindUnknown is the zero value; errors from outside this module
	// classify as unknown unless wrapped.
	KindUnknown Kind = iota
	// KindFormat indicates bytes that are not a recognizable archive or
	// metadata document.
	KindFormat
	// KindRead indicates an I/O failure reading the underlying file.
	KindRead
	// KindEntryNotFound indicates an archive path that does not exist.
	KindEntryNotFound
	// KindUnsupportedCompression indicates an entry that is present but
	// cannot be extracted with the decoders available.
	KindUnsupportedCompression
	// KindEncrypted indicates an archive that requires a password.
	KindEncrypted
	// KindDecode indicates image bytes that could not be decoded.
	KindDecode
	// KindDuplicateRegistration indicates a plugin id registered twice.
	KindDuplicateRegistration
	// KindUnsupportedOperation is returned by capability default
	// implementations for operations a plugin does not provide.
	KindUnsupportedOperation
	// KindAlreadyDisposed indicates use of a reader or context after
	// dispose.
	KindAlreadyDisposed
	// KindValidation indicates invalid configuration or input.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindRead:
		return "read"
	case KindEntryNotFound:
		return "entry not found"
	case KindUnsupportedCompression:
		return "unsupported compression"
	case KindEncrypted:
		return "encrypted"
	case KindDecode:
		return "decode"
	case KindDuplicateRegistration:
		return "duplicate registration"
	case KindUnsupportedOperation:
		return "unsupported operation"
	case KindAlreadyDisposed:
		return "already disposed"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error carries a Kind, a message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind wrapping a cause. A nil cause
// yields a plain error of that kind.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf walks the wrap chain and returns the kind of the outermost
// *Error, or KindUnknown when none is present.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err (or any error it wraps) has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Is delegates to the standard library so plain sentinel comparisons on
// wrapped causes keep working.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As delegates to the standard library.
func As(err error, target any) bool { return stderrors.As(err, target) }
