// Package internal holds helpers shared by labauth packages that are not part
// of the public API.
//
// Tokens are logged only through [TokenAttr], which records presence, length
// and a short SHA-256 fingerprint.
package internal
