package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned for opaque tokens that do not decode as a JWT.
var ErrNotJWT = errors.New("token is not a decodable jwt")

// Claims are the access token claims the client cares about.
type Claims struct {
	Role     string `json:"role,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// Inspect decodes tokenStr without verifying its signature.
func Inspect(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrNotJWT
	}
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of tokenStr. ok is false for opaque
// tokens and tokens without exp.
func ExpiresAt(tokenStr string) (time.Time, bool) {
	claims, err := Inspect(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ExpiresWithin reports whether tokenStr expires before now+window. Tokens
// whose expiry cannot be read never report true.
func ExpiresWithin(tokenStr string, window time.Duration, now time.Time) bool {
	exp, ok := ExpiresAt(tokenStr)
	if !ok {
		return false
	}
	return !exp.After(now.Add(window))
}
