package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed request.
type Kind string

const (
	KindTimeout          Kind = "timeout"
	KindUnreachable      Kind = "unreachable"
	KindBadRequest       Kind = "bad_request"
	KindPermissionDenied Kind = "permission_denied"
	KindTokenExpired     Kind = "token_expired"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindServerError      Kind = "server_error"
	KindUnclassified     Kind = "unclassified"
	KindMalformedRequest Kind = "malformed_request"
)

var (
	// ErrMalformedResponse is returned when the transport succeeded but the
	// body lacks required fields.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRefreshFailed is returned when the refresh token was rejected or the
	// exchange could not complete. The session is unrecoverable.
	ErrRefreshFailed = errors.New("refresh failed")
	// ErrNoRefreshToken is returned when a token expired and no refresh token
	// is stored.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRetryExhausted is returned when a request already retried once
	// receives another expiry.
	ErrRetryExhausted = errors.New("request already retried")
)

// Error is returned for every request that ends in the failure phase.
type Error struct {
	Kind      Kind
	Status    int
	Message   string
	RequestID string
	Method    string
	Path      string
	Body      []byte
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (%d %s)", msg, e.Status, http.StatusText(e.Status))
	}
	if e.Method != "" || e.Path != "" {
		msg += ": " + e.Method + " " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf returns the Kind of err, or "" when err is not an [*Error].
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}
