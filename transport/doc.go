// Package transport is the authenticated HTTP client: a request/response
// interceptor chain that attaches bearer tokens, normalizes payloads, and
// classifies and recovers from failed responses.
//
// # Request phase
//
// Each attempt reads the access token from the credential store, never from
// cached session state, and sends it as a bearer credential when present.
// Top-level JSON object fields whose value is null are sent as "".
//
// # Failure phase
//
// Every failed response produces exactly one user notice and is returned to
// the caller as an [*Error] carrying a [Kind]. A 401 classified as token
// expiry is recovered transparently: the refresh token is exchanged once and
// the original request re-enters the full chain. A request is retried at most
// once. When recovery is impossible the stored credentials are cleared and a
// delayed redirect to the login route is scheduled.
//
// The transport depends on the credential store directly, not on the session
// state, so it can be constructed first and handed to the session.
package transport
