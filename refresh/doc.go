// Package refresh exchanges a stored refresh token for a new access token.
//
// # Coalescing
//
// Concurrent exchanges for the same refresh token share one HTTP call
// (single-flight). Every waiter receives the same result, and the new access
// token is written to the credential store exactly once.
//
// # Boundaries
//
// The exchange bypasses the transport's interceptor chain: the refresh token
// travels as the bearer credential and a failing exchange must never trigger
// another refresh. Clearing the session on failure is left to the caller.
package refresh
