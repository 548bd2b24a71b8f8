package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure. Kinds are stable identifiers: handlers,
// logs and clients all key off them.
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindValidation   Kind = "VALIDATION"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindUpstream     Kind = "UPSTREAM"
	KindConfig       Kind = "CONFIG"
	KindInternal     Kind = "INTERNAL"
)

// Error is the typed error every service operation returns on a domain
// violation. Details carries structured context (missing ids, field lists)
// that is safe to expose to API clients.
type Error struct {
	Kind     Kind
	Message  string
	Details  map[string]any
	HTTPHint int // optional override for the default kind mapping
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPStatus maps the error to the status code the API boundary should emit.
func (e *Error) HTTPStatus() int {
	if e.HTTPHint != 0 {
		return e.HTTPHint
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail returns the error with one extra detail entry set.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

func newError(kind Kind, msg string, details ...map[string]any) *Error {
	e := &Error{Kind: kind, Message: msg}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

func NotFound(msg string, details ...map[string]any) *Error {
	return newError(KindNotFound, msg, details...)
}

func Conflict(msg string, details ...map[string]any) *Error {
	return newError(KindConflict, msg, details...)
}

// RateLimited is a Conflict surfaced as 429: the taxonomy keeps one kind for
// both, the hint carries the wire difference.
func RateLimited(msg string, details ...map[string]any) *Error {
	e := newError(KindConflict, msg, details...)
	e.HTTPHint = http.StatusTooManyRequests
	return e
}

func Validation(msg string, details ...map[string]any) *Error {
	return newError(KindValidation, msg, details...)
}

func Unauthorized(msg string, details ...map[string]any) *Error {
	return newError(KindUnauthorized, msg, details...)
}

func Upstream(msg string, details ...map[string]any) *Error {
	return newError(KindUpstream, msg, details...)
}

func Config(msg string, details ...map[string]any) *Error {
	return newError(KindConfig, msg, details...)
}

func Internal(msg string, details ...map[string]any) *Error {
	return newError(KindInternal, msg, details...)
}

// From extracts the typed error, wrapping anything unexpected as Internal so
// the boundary never leaks raw driver or provider errors.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: "internal error"}
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
