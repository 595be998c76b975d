package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(rdb, "lab", quietLogger()), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok := s.Get(ctx, KeyToken); ok {
		t.Fatal("expected empty store")
	}
	if err := s.SetMany(ctx, map[string]string{
		KeyToken:        "access-1",
		KeyRefreshToken: "refresh-1",
		KeyUser:         `{"id":1}`,
	}); err != nil {
		t.Fatalf("set many: %v", err)
	}
	if err := s.Set(ctx, KeyToken, "access-2"); err != nil {
		t.Fatalf("set: %v", err)
	}

	tokens := Tokens{Store: s}
	if got := tokens.AccessToken(ctx); got != "access-2" {
		t.Fatalf("access token = %q", got)
	}
	if got := tokens.RefreshToken(ctx); got != "refresh-1" {
		t.Fatalf("refresh token = %q", got)
	}

	if err := ClearCredentials(ctx, s); err != nil {
		t.Fatalf("first clear: %v", err)
	}
	if err := ClearCredentials(ctx, s); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	for _, k := range CredentialKeys {
		if _, ok := s.Get(ctx, k); ok {
			t.Fatalf("key %q survived clear", k)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "credentials.json"), quietLogger())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	s, _, done := newRedisStoreTest(t)
	defer done()
	exerciseStore(t, s)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	first, err := NewFileStore(path, quietLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Set(ctx, KeyToken, "persisted"); err != nil {
		t.Fatalf("set: %v", err)
	}

	second, err := NewFileStore(path, quietLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok := second.Get(ctx, KeyToken); !ok || v != "persisted" {
		t.Fatalf("expected persisted token, got %q %v", v, ok)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600, got %o", perm)
	}
}

func TestFileStoreSeesOtherWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	cli, err := NewFileStore(path, quietLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	other, err := NewFileStore(path, quietLogger())
	if err != nil {
		t.Fatalf("open second: %v", err)
	}

	if err := cli.SetMany(ctx, map[string]string{KeyToken: "a", KeyUser: `{"id":1}`}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := other.Get(ctx, KeyToken); v != "a" {
		t.Fatalf("second handle read %q", v)
	}

	if err := other.Set(ctx, KeyRefreshToken, "r"); err != nil {
		t.Fatalf("set refresh: %v", err)
	}
	if err := cli.Set(ctx, KeyToken, "b"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if v, ok := other.Get(ctx, KeyRefreshToken); !ok || v != "r" {
		t.Fatalf("refresh token lost by the other writer: %q %v", v, ok)
	}

	if err := other.Remove(ctx, KeyToken, KeyRefreshToken, KeyUser); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := cli.Get(ctx, KeyToken); ok {
		t.Fatal("logout from the other handle not seen")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove file: %v", err)
	}
	if err := cli.Set(ctx, KeyToken, "c"); err != nil {
		t.Fatalf("set after delete: %v", err)
	}
	if v, _ := other.Get(ctx, KeyToken); v != "c" {
		t.Fatalf("recreated file not seen, got %q", v)
	}
}

func TestFileStoreCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := NewFileStore(path, quietLogger())
	if err != nil {
		t.Fatalf("corrupt file must not fail construction: %v", err)
	}
	if _, ok := s.Get(context.Background(), KeyToken); ok {
		t.Fatal("expected empty store")
	}
}

func TestRedisStoreNamespacesKeys(t *testing.T) {
	s, mr, done := newRedisStoreTest(t)
	defer done()

	if err := s.Set(context.Background(), KeyToken, "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := mr.Get("lab:token")
	if err != nil || got != "abc" {
		t.Fatalf("expected namespaced key, got %q err=%v", got, err)
	}
}

func TestRedisStoreReadFailureIsAbsent(t *testing.T) {
	s, mr, done := newRedisStoreTest(t)
	defer done()

	if err := s.Set(context.Background(), KeyToken, "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.Close()

	if v, ok := s.Get(context.Background(), KeyToken); ok || v != "" {
		t.Fatalf("expected absent value on backend failure, got %q", v)
	}
	if err := s.Set(context.Background(), KeyToken, "x"); err == nil {
		t.Fatal("expected write error on backend failure")
	}
}
