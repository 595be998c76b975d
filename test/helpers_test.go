//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/labkm/labauth"
)

const refreshToken = "integration-refresh"

// labBackend signs HS256 access tokens carrying a generation claim;
// rotate() invalidates every token issued so far.
type labBackend struct {
	key []byte
	ttl time.Duration

	mu         sync.RWMutex
	generation int

	refreshes atomic.Int64
	logouts   atomic.Int64
}

func newLabBackend(ttl time.Duration) *labBackend {
	return &labBackend{key: []byte("integration-signing-key"), ttl: ttl}
}

func (b *labBackend) rotate() {
	b.mu.Lock()
	b.generation++
	b.mu.Unlock()
}

func (b *labBackend) gen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.generation
}

func (b *labBackend) issue() string {
	now := time.Now()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "3",
		"username": "zhao",
		"gen":      b.gen(),
		"iat":      now.Unix(),
		"exp":      now.Add(b.ttl).Unix(),
	}).SignedString(b.key)
	if err != nil {
		panic(err)
	}
	return tok
}

func (b *labBackend) authorized(r *http.Request) error {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return errors.New("missing authorization header")
	}
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return b.key, nil },
		jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return err
	}
	claims := tok.Claims.(jwt.MapClaims)
	if g, _ := claims["gen"].(float64); int(g) != b.gen() {
		return errors.New("token has expired")
	}
	return nil
}

func (b *labBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/auth/login":
		fmt.Fprintf(w, `{"access_token":%q,"refresh_token":%q,"user":{"id":3,"username":"zhao","role":"Administrator","lab":"NLP"}}`, b.issue(), refreshToken)
	case "/api/v1/auth/refresh":
		b.refreshes.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+refreshToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"access_token":%q}`, b.issue())
	case "/api/v1/auth/logout":
		b.logouts.Add(1)
		fmt.Fprint(w, `{"message":"ok"}`)
	case "/api/v1/achievements":
		if err := b.authorized(r); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"msg":"Token has expired"}`)
			return
		}
		fmt.Fprint(w, `{"items":[]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type integrationEnv struct {
	mr  *miniredis.Miniredis
	api *labBackend
	srv *httptest.Server
}

func newIntegrationEnv(t *testing.T, ttl time.Duration) *integrationEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	api := newLabBackend(ttl)
	srv := httptest.NewServer(api)
	t.Cleanup(func() {
		srv.Close()
		mr.Close()
	})
	return &integrationEnv{mr: mr, api: api, srv: srv}
}

func (e *integrationEnv) redis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: e.mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// client builds one labauth process sharing the env's Redis credentials.
func (e *integrationEnv) client(t *testing.T, mutate func(*labauth.Config)) *labauth.Client {
	t.Helper()

	cfg := labauth.DefaultConfig()
	cfg.Transport.BaseURL = e.srv.URL
	cfg.Transport.RedirectDelay = 0
	cfg.Storage.Backend = labauth.StoreRedis
	cfg.Storage.RedisPrefix = "it"
	cfg.Notify.Sink = "none"
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := labauth.New().
		WithConfig(cfg).
		WithRedis(e.redis(t)).
		WithHTTPClient(e.srv.Client()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build(context.Background())
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func login(t *testing.T, c *labauth.Client) {
	t.Helper()
	if _, err := c.Session().Login(context.Background(), map[string]string{"username": "zhao", "password": "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
}
