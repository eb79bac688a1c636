// Package apperr classifies errors into the kinds the HTTP boundary maps to
// status codes. Internal layers return these kinds; only cmd/api translates
// them into transport-specific responses.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the taxonomy of error classes a service call can fail with.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden   Kind = "forbidden"
	KindNotFound    Kind = "not_found"
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "unavailable"
	KindRateLimited Kind = "rate_limited"
	KindInternal    Kind = "internal"
)

// Sentinel errors, one per kind, used with errors.Is for classification.
var (
	ErrValidation  = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not found")
	ErrTimeout     = errors.New("timeout")
	ErrUnavailable = errors.New("unavailable")
	ErrRateLimited = errors.New("rate limited")
	ErrInternal    = errors.New("internal error")
)

var sentinelByKind = map[Kind]error{
	KindValidation:   ErrValidation,
	KindUnauthorized: ErrUnauthorized,
	KindForbidden:    ErrForbidden,
	KindNotFound:     ErrNotFound,
	KindTimeout:      ErrTimeout,
	KindUnavailable:  ErrUnavailable,
	KindRateLimited:  ErrRateLimited,
	KindInternal:     ErrInternal,
}

// Error wraps a sentinel kind with context: which field triggered it,
// a detail message, and the underlying error it wraps.
type Error struct {
	Kind    Kind
	Field   string
	Detail  string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds an *Error for the given kind.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Wrapped: sentinelByKind[kind]}
}

// Field builds a field-scoped validation-style error.
func Field(kind Kind, field, detail string) *Error {
	return &Error{Kind: kind, Field: field, Detail: detail, Wrapped: sentinelByKind[kind]}
}

// Wrap attaches a kind to an arbitrary error, preserving it via Unwrap.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Detail: err.Error(), Wrapped: err}
}

// As classifies err into a Kind, defaulting to KindInternal when the error
// carries no recognised sentinel.
func As(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	for kind, sentinel := range sentinelByKind {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}
