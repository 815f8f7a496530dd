// Package apperr defines the error kinds the ledger services return and how
// they map onto HTTP responses.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindBadRequest
	KindConflict
	KindNotFound
	KindUnauthenticated
	KindDB
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindDB:
		return "db_error"
	default:
		return "unknown"
	}
}

// Error is a classified error. Msg is safe to show to clients; Err is not.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return e.Op + ": " + e.Msg + ": " + e.Err.Error()
		}
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func BadRequest(msg string) error { return &Error{Kind: KindBadRequest, Msg: msg} }

func Conflict(msg string) error { return &Error{Kind: KindConflict, Msg: msg} }

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Msg: msg} }

func Unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Msg: msg} }

// Storage wraps a store failure with the operation that hit it. The message
// seen by clients is generic.
func Storage(op string, err error) error {
	return &Error{Kind: KindDB, Op: op, Msg: "database error", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the caller may retry the operation unchanged.
func Retryable(err error) bool {
	return Is(err, KindDB)
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "server error"
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
