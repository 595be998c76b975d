package labauth

import (
	"errors"

	"github.com/labkm/labauth/transport"
)

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrUnknownStore is returned for an unsupported Storage.Backend.
	ErrUnknownStore = errors.New("unknown store backend")
)

// Transport and session errors, re-exported for errors.Is at the call site.
var (
	ErrMalformedResponse = transport.ErrMalformedResponse
	ErrRefreshFailed     = transport.ErrRefreshFailed
	ErrNoRefreshToken    = transport.ErrNoRefreshToken
	ErrRetryExhausted    = transport.ErrRetryExhausted
)

// Error is the failure type returned for every request.
type Error = transport.Error

// Kind classifies a failed request.
type Kind = transport.Kind

// KindOf returns the Kind of err, or "" when err is not an [*Error].
func KindOf(err error) Kind { return transport.KindOf(err) }
