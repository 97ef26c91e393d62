package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one member of the closed set of failure kinds.
type Kind int

const (
	KindInternal Kind = iota
	KindDatabase
	KindNotFound
	KindValidation
	KindForbidden
	KindWrongCredentials
	KindMissingCredentials
	KindInvalidToken
	KindTokenCreation
)

func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "database_error"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_error"
	case KindForbidden:
		return "forbidden"
	case KindWrongCredentials:
		return "wrong_credentials"
	case KindMissingCredentials:
		return "missing_credentials"
	case KindInvalidToken:
		return "invalid_token"
	case KindTokenCreation:
		return "token_creation"
	default:
		return "internal_error"
	}
}

// Error is a taxonomy error. Detail is echoed to callers only for the kinds
// whose message policy allows it (validation, not found). Err holds the
// underlying cause for server-side logging and is never rendered.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDatabase:
		return fmt.Sprintf("Database error: %v", e.Err)
	case KindNotFound:
		return "Not found: " + e.Detail
	case KindValidation:
		return "Validation error: " + e.Detail
	case KindForbidden:
		return "Forbidden Request"
	case KindWrongCredentials:
		return "Wrong credentials"
	case KindMissingCredentials:
		return "Missing credentials"
	case KindInvalidToken:
		return "Invalid token"
	case KindTokenCreation:
		return "Token creation error"
	default:
		return "Internal server error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any taxonomy error of the same kind, so the sentinels below
// can be used with errors.Is regardless of detail or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Detail == "" && t.Err == nil
}

// Sentinels for the kinds that carry no data.
var (
	ErrInternal           = &Error{Kind: KindInternal}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrWrongCredentials   = &Error{Kind: KindWrongCredentials}
	ErrMissingCredentials = &Error{Kind: KindMissingCredentials}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken}
	ErrTokenCreation      = &Error{Kind: KindTokenCreation}
)

// DatabaseError wraps a storage failure.
func DatabaseError(cause error) *Error {
	return &Error{Kind: KindDatabase, Err: cause}
}

// NotFound reports a missing subject, e.g. NotFound("User not found").
func NotFound(subject string) *Error {
	return &Error{Kind: KindNotFound, Detail: subject}
}

// ValidationError reports caller input that failed validation.
func ValidationError(detail string) *Error {
	return &Error{Kind: KindValidation, Detail: detail}
}

// Internal wraps an unexpected failure as InternalError, keeping the cause for logs.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Err: cause}
}

// TokenCreation wraps a signing failure.
func TokenCreation(cause error) *Error {
	return &Error{Kind: KindTokenCreation, Err: cause}
}

// KindOf returns the taxonomy kind of err. Errors outside the taxonomy are
// reported as KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Render maps err to the HTTP status and the message shown to callers.
// Causes are never part of the message.
func Render(err error) (int, string) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, "Internal server error"
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest, "Validation error: " + e.Detail
	case KindMissingCredentials:
		return http.StatusBadRequest, "Missing credentials"
	case KindDatabase:
		return http.StatusInternalServerError, "An internal error occurred"
	case KindNotFound:
		return http.StatusNotFound, "Not found: " + e.Detail
	case KindForbidden:
		return http.StatusForbidden, "Forbidden request"
	case KindWrongCredentials:
		return http.StatusUnauthorized, "Wrong credentials"
	case KindInvalidToken:
		return http.StatusUnauthorized, "Invalid token"
	case KindTokenCreation:
		return http.StatusInternalServerError, "Token creation error"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
