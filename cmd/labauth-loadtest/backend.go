package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const refreshToken = "loadtest-refresh"

// backend issues HS256 access tokens tagged with a generation. Rotating the
// generation expires every outstanding access token at once.
type backend struct {
	key []byte
	ttl time.Duration

	mu         sync.RWMutex
	generation int

	refreshes atomic.Int64
	requests  atomic.Int64
	rejected  atomic.Int64
}

func newBackend(ttl time.Duration) *backend {
	return &backend{key: []byte("labauth-loadtest-signing-key"), ttl: ttl}
}

func (b *backend) rotate() {
	b.mu.Lock()
	b.generation++
	b.mu.Unlock()
}

func (b *backend) currentGeneration() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.generation
}

func (b *backend) issue() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "1",
		"gen": b.currentGeneration(),
		"iat": now.Unix(),
		"exp": now.Add(b.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.key)
}

func (b *backend) verify(header string) error {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return errors.New("missing bearer token")
	}
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return b.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("unexpected claims")
	}
	gen, ok := claims["gen"].(float64)
	if !ok || int(gen) != b.currentGeneration() {
		return errors.New("token has expired")
	}
	return nil
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/v1/auth/login":
		tok, err := b.issue()
		if err != nil {
			http.Error(w, `{"message":"sign failed"}`, http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"access_token":%q,"refresh_token":%q,"user":{"id":1,"username":"loadtest","role":"Administrator"}}`, tok, refreshToken)
	case "/api/v1/auth/refresh":
		b.refreshes.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+refreshToken {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"invalid refresh token"}`)
			return
		}
		tok, err := b.issue()
		if err != nil {
			http.Error(w, `{"message":"sign failed"}`, http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"access_token":%q}`, tok)
	case "/api/v1/achievements":
		b.requests.Add(1)
		if err := b.verify(r.Header.Get("Authorization")); err != nil {
			b.rejected.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"msg":"Token has expired"}`)
			return
		}
		fmt.Fprint(w, `{"items":[]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
