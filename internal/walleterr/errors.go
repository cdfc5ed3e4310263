// Package walleterr implements the wallet service's error taxonomy.
// Every error that crosses a handler boundary is classified into one of a
// small set of Kinds so the HTTP layer can map it to a status code without
// inspecting error strings.
package walleterr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport-layer handling.
type Kind string

const (
	KindValidation  Kind = "validation"   // input violates schema or domain rule
	KindAuth        Kind = "auth"         // unauthenticated or cross-user access
	KindNotFound    Kind = "not_found"    // entity absent
	KindConflict    Kind = "conflict"     // unique-key violation
	KindDependency  Kind = "dependency"   // market-data or FX source unreachable
	KindTransient   Kind = "transient"    // DB serialization failure, safe to retry
	KindFatal       Kind = "fatal"        // programming error, no partial write kept
)

// Error is the single error type used across the wallet service.
type Error struct {
	Kind    Kind
	Message string
	Detail  string // optional per-item detail, used in batch failures
	err     error  // wrapped cause, not serialized to clients
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// Retryable reports whether the caller may safely retry the operation.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient
}

// HTTPStatus maps the error Kind to its response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindAuth:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDependency:
		return http.StatusServiceUnavailable
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, err: cause}
}

func Validation(msg string, args ...interface{}) *Error {
	return newErr(KindValidation, fmt.Sprintf(msg, args...), nil)
}

func Auth(msg string, args ...interface{}) *Error {
	return newErr(KindAuth, fmt.Sprintf(msg, args...), nil)
}

func NotFound(entity string, id interface{}) *Error {
	return newErr(KindNotFound, fmt.Sprintf("%s %v not found", entity, id), nil)
}

func Conflict(msg string, args ...interface{}) *Error {
	return newErr(KindConflict, fmt.Sprintf(msg, args...), nil)
}

func Dependency(msg string, cause error) *Error {
	return newErr(KindDependency, msg, cause)
}

func Transient(msg string, cause error) *Error {
	return newErr(KindTransient, msg, cause)
}

func Fatal(msg string, cause error) *Error {
	return newErr(KindFatal, msg, cause)
}

// InsufficientQuantity is the specific validation error raised by the
// Holding Projector when a SELL would drive quantity negative.
func InsufficientQuantity(accountID, instrumentID string) *Error {
	return Validation("insufficient quantity to sell for account=%s instrument=%s", accountID, instrumentID)
}

// As reports whether err (or one it wraps) is a *Error and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is a *Error, else KindFatal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindFatal
}
