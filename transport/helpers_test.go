package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/notify"
	"github.com/labkm/labauth/store"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recordingNotifier) all() []notify.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notice(nil), r.notices...)
}

type fakeNavigator struct {
	mu      sync.Mutex
	current string
	visits  chan string
}

func newFakeNavigator(current string) *fakeNavigator {
	return &fakeNavigator{current: current, visits: make(chan string, 8)}
}

func (n *fakeNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *fakeNavigator) Navigate(_ context.Context, path string) error {
	n.mu.Lock()
	n.current = path
	n.mu.Unlock()
	n.visits <- path
	return nil
}

func (n *fakeNavigator) expectVisit(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-n.visits:
		if got != want {
			t.Fatalf("navigated to %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected navigation to %q", want)
	}
}

func (n *fakeNavigator) expectNoVisit(t *testing.T) {
	t.Helper()
	select {
	case got := <-n.visits:
		t.Fatalf("unexpected navigation to %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

// fakeRefresher stands in for the refresh coordinator: it counts calls and
// persists the issued token like the real one does.
type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	token string
	err   error
	store store.Store
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	f.mu.Lock()
	f.calls++
	token, err := f.token, f.err
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	_ = f.store.Set(ctx, store.KeyToken, token)
	return token, nil
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type harness struct {
	client    *Client
	store     *store.MemoryStore
	notifier  *recordingNotifier
	navigator *fakeNavigator
	refresher *fakeRefresher
	metrics   *metrics.Metrics
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, srv *httptest.Server, mutate func(*Config)) *harness {
	t.Helper()
	st := store.NewMemoryStore()
	h := &harness{
		store:     st,
		notifier:  &recordingNotifier{},
		navigator: newFakeNavigator("/achievements/create"),
		refresher: &fakeRefresher{token: "fresh-token", store: st},
		metrics:   metrics.New(metrics.Config{Enabled: true}),
	}

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RedirectDelay = 0
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := New(cfg, Deps{
		Store:     st,
		Refresher: h.refresher,
		Navigator: h.navigator,
		Notifier:  h.notifier,
		Metrics:   h.metrics,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(c.Close)
	h.client = c
	return h
}

func (h *harness) login(t *testing.T, access, refresh string) {
	t.Helper()
	values := map[string]string{store.KeyToken: access, store.KeyUser: `{"id":1,"role":"Member"}`}
	if refresh != "" {
		values[store.KeyRefreshToken] = refresh
	}
	if err := h.store.SetMany(context.Background(), values); err != nil {
		t.Fatalf("seed store: %v", err)
	}
}
