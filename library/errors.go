package library

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure. Every error produced by this
// package carries exactly one kind so callers can branch without matching
// on message text.
type ErrorKind int

const (
	// KindValidation marks malformed or out-of-range input.
	KindValidation ErrorKind = iota + 1
	// KindNotFound marks a reference to a missing or ineligible record.
	KindNotFound
	// KindConflict marks uniqueness or state violations.
	KindConflict
	// KindCapacity marks a member at the active-loan limit.
	KindCapacity
	// KindStore marks an infrastructural failure of the backing store.
	KindStore
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindCapacity:
		return "capacity"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by the library core.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func capacityf(format string, args ...any) *Error {
	return &Error{Kind: KindCapacity, Msg: fmt.Sprintf(format, args...)}
}

func storeErr(op string, err error) *Error {
	return &Error{Kind: KindStore, Msg: op, Err: err}
}

func hasKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return hasKind(err, KindValidation) }

// IsNotFound reports whether err refers to a missing or ineligible record.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsConflict reports whether err is a uniqueness or state violation.
func IsConflict(err error) bool { return hasKind(err, KindConflict) }

// IsCapacity reports whether err is an active-loan limit violation.
func IsCapacity(err error) bool { return hasKind(err, KindCapacity) }

// IsStore reports whether err is an infrastructural store failure.
func IsStore(err error) bool { return hasKind(err, KindStore) }
