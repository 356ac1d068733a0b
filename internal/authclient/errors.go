package authclient

import (
	"errors"
	"net/http"
)

// Kind classifies every failure surfaced by the client.
type Kind string

const (
	KindValidation            Kind = "ValidationError"
	KindInvalidCredentials    Kind = "InvalidCredentials"
	KindInvalidOrExpiredToken Kind = "InvalidOrExpiredToken"
	KindUnauthenticated       Kind = "Unauthenticated"
	KindNetwork               Kind = "NetworkError"
	KindUnknown               Kind = "UnknownError"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrValidation            = &Error{Kind: KindValidation}
	ErrInvalidCredentials    = &Error{Kind: KindInvalidCredentials}
	ErrInvalidOrExpiredToken = &Error{Kind: KindInvalidOrExpiredToken}
	ErrUnauthenticated       = &Error{Kind: KindUnauthenticated}
	ErrNetwork               = &Error{Kind: KindNetwork}
	ErrUnknown               = &Error{Kind: KindUnknown}
)

// Error is the single failure shape returned by every client operation.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status when the server answered, zero otherwise.
	Status int
	// Code is the server's machine code, if any.
	Code   string
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return defaultMessage(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, KindUnknown for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err has the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func newError(kind Kind, message string, err error) *Error {
	if message == "" {
		message = defaultMessage(kind)
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

func defaultMessage(kind Kind) string {
	switch kind {
	case KindValidation:
		return "The request was rejected. Check the highlighted fields."
	case KindInvalidCredentials:
		return "Invalid email or password."
	case KindInvalidOrExpiredToken:
		return "This link is invalid or has expired."
	case KindUnauthenticated:
		return "Your session has expired. Please log in again."
	case KindNetwork:
		return "Unable to reach the server. Check your connection and try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// kindForCode maps the server's error codes onto client kinds.
func kindForCode(op operation, code string) (Kind, bool) {
	switch code {
	case "VALIDATION_FAILED", "CONFLICT":
		return KindValidation, true
	case "INVALID_CREDENTIALS":
		return KindInvalidCredentials, true
	case "INVALID_OR_EXPIRED_TOKEN":
		return KindInvalidOrExpiredToken, true
	case "UNAUTHORIZED":
		return KindUnauthenticated, true
	case "FORBIDDEN":
		if op == opLogin {
			return KindInvalidCredentials, true
		}
		return KindUnknown, true
	case "NOT_FOUND", "RATE_LIMITED", "INTERNAL_ERROR":
		return KindUnknown, true
	}
	return "", false
}

// kindForStatus is used when the body carries no recognised code.
func kindForStatus(op operation, status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		if op.tokenFlow() {
			return KindInvalidOrExpiredToken
		}
		return KindValidation
	case http.StatusUnauthorized:
		if op == opLogin || op == opChangePassword {
			return KindInvalidCredentials
		}
		return KindUnauthenticated
	case http.StatusForbidden:
		if op == opLogin {
			return KindInvalidCredentials
		}
	}
	return KindUnknown
}
