// Package errs provides the unified error type used across all of DryDB.
//
// Every dialect driver, the gateway, the history store and the export sink
// wrap their native errors into *errs.Error before returning them. Callers
// branch on the Is* predicates instead of importing driver packages.
//
// Usage:
//
//	// In a dialect driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindTimeout, "query timed out", pgErr)
//
//	// At the boundary, check the kind:
//	if errs.IsNoSession(err) {
//	    http.Error(w, err.Error(), http.StatusConflict)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing driver-specific codes.
type ErrKind int

const (
	ErrKindUnknown             ErrKind = iota
	ErrKindNotFound                    // no rows, no record, no object
	ErrKindConnectionFailed            // network, auth or missing driver
	ErrKindTimeout                     // context deadline / cancellation
	ErrKindQueryFailed                 // the engine rejected the statement
	ErrKindInvalidInput                // bad arguments from the caller
	ErrKindPermissionDenied            // access denied
	ErrKindUnsupportedDialect          // configuration error, never retried
	ErrKindNoSession                   // introspection or execution while disconnected
	ErrKindIntrospectionFailed         // catalog query failed
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindUnsupportedDialect:
		return "unsupported_dialect"
	case ErrKindNoSession:
		return "no_session"
	case ErrKindIntrospectionFailed:
		return "introspection_failed"
	default:
		return "unknown"
	}
}

// ErrNoActiveSession is returned by schema and execution calls made while
// the gateway holds no session.
var ErrNoActiveSession = New(ErrKindNoSession, "no active session")

// Error is the single error type returned by all DryDB subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind and message, so that
// errors.Is(err, ErrNoActiveSession) holds for wrapped copies too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether the engine rejected a statement.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsUnsupportedDialect reports whether err names a dialect with no driver.
func IsUnsupportedDialect(err error) bool {
	return KindOf(err) == ErrKindUnsupportedDialect
}

// IsNoSession reports whether err came from a call that needs a session.
func IsNoSession(err error) bool {
	return KindOf(err) == ErrKindNoSession
}

// IsIntrospectionFailed reports whether a catalog query failed.
func IsIntrospectionFailed(err error) bool {
	return KindOf(err) == ErrKindIntrospectionFailed
}

// KindOf extracts the ErrKind of the outermost *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
