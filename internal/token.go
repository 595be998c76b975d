package internal

import (
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
)

const fingerprintLen = 8

// Fingerprint returns a short, stable, non-reversible tag for token so log
// lines from different processes can be correlated. Empty tokens map to "".
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:fingerprintLen]
}

// TokenAttr renders token as a log group holding its length and fingerprint.
// The token itself never reaches the log.
func TokenAttr(key, token string) slog.Attr {
	if token == "" {
		return slog.Group(key, slog.Bool("present", false))
	}
	return slog.Group(key,
		slog.Bool("present", true),
		slog.Int("len", len(token)),
		slog.String("fp", Fingerprint(token)),
	)
}
