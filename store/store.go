package store

import (
	"context"
	"errors"
)

// Persisted keys, shared with the browser build of the application.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// CredentialKeys lists every key owned by an authenticated session.
var CredentialKeys = []string{KeyToken, KeyRefreshToken, KeyUser}

var (
	// ErrRedisUnavailable wraps go-redis failures on write paths.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrStoreWrite wraps file store persistence failures.
	ErrStoreWrite = errors.New("credential store write failed")
)

// Store is durable string key/value storage that survives process restarts.
//
// Get never fails: backend errors are logged by the implementation and
// reported as an absent value.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	// SetMany writes all values as one unit.
	SetMany(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
}

// TokenReader is the narrow read-only view of raw credentials used by the
// HTTP transport. It reads the store directly instead of going through the
// session state so the transport works before any session exists.
type TokenReader interface {
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
}

// Tokens implements [TokenReader] over a [Store].
type Tokens struct {
	Store Store
}

// AccessToken returns the stored access token or "".
func (t Tokens) AccessToken(ctx context.Context) string {
	if t.Store == nil {
		return ""
	}
	v, _ := t.Store.Get(ctx, KeyToken)
	return v
}

// RefreshToken returns the stored refresh token or "".
func (t Tokens) RefreshToken(ctx context.Context) string {
	if t.Store == nil {
		return ""
	}
	v, _ := t.Store.Get(ctx, KeyRefreshToken)
	return v
}

// ClearCredentials removes every session key. Removing absent keys is not an
// error, so clearing twice equals clearing once.
func ClearCredentials(ctx context.Context, s Store) error {
	if s == nil {
		return nil
	}
	return s.Remove(ctx, CredentialKeys...)
}
