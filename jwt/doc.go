// Package jwt inspects access tokens on the client side.
//
// The client never holds signing keys, so nothing here verifies a signature.
// Claims are decoded only to read the expiry and subject for scheduling a
// refresh; the server remains the sole authority on token validity.
package jwt
