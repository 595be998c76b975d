package router

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/labkm/labauth/guard"
	"github.com/labkm/labauth/route"
)

type switchSession struct{ loggedIn atomic.Bool }

func (s *switchSession) IsLoggedIn() bool { return s.loggedIn.Load() }

func newRouterTest(t *testing.T) (*Router, *switchSession) {
	t.Helper()
	sess := &switchSession{}
	g := guard.New(guard.DefaultConfig(), sess, nil, nil, nil)
	return New(route.DefaultTable(), g, nil), sess
}

func TestPushProtectedRouteRedirectsToLogin(t *testing.T) {
	r, _ := newRouterTest(t)
	ctx := context.Background()

	m, err := r.Push(ctx, "/achievements/12/edit")
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if m.Route.Name != route.NameLogin || r.CurrentPath() != "/auth/login" {
		t.Fatalf("expected login, got %+v", m)
	}
	if got := m.Query.Get(guard.RedirectParam); got != "/achievements/12/edit" {
		t.Fatalf("redirect param %q", got)
	}
	if r.Title() != "Login - "+guard.DefaultAppTitle {
		t.Fatalf("title %q", r.Title())
	}
}

func TestPushProceedsWhenLoggedIn(t *testing.T) {
	r, sess := newRouterTest(t)
	sess.loggedIn.Store(true)

	m, err := r.PushNamed(context.Background(), "AchievementDetail", map[string]string{"id": "3"}, url.Values{"tab": {"files"}})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if m.Route.Name != "AchievementDetail" || m.FullPath != "/achievements/3?tab=files" {
		t.Fatalf("unexpected match %+v", m)
	}
	if h := r.History(); len(h) != 1 || h[0] != m.FullPath {
		t.Fatalf("history %v", h)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	r, sess := newRouterTest(t)
	sess.loggedIn.Store(true)
	ctx := context.Background()

	for i := 1; i <= MaxHistory+10; i++ {
		if _, err := r.Push(ctx, fmt.Sprintf("/achievements/%d", i)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	h := r.History()
	if len(h) != MaxHistory {
		t.Fatalf("history length %d", len(h))
	}
	if h[0] != "/achievements/11" || h[len(h)-1] != fmt.Sprintf("/achievements/%d", MaxHistory+10) {
		t.Fatalf("history window %s .. %s", h[0], h[len(h)-1])
	}
}

func TestNavigateImplementsNavigator(t *testing.T) {
	r, _ := newRouterTest(t)
	if err := r.Navigate(context.Background(), "/auth/login"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if r.CurrentPath() != "/auth/login" {
		t.Fatalf("current %q", r.CurrentPath())
	}
	if err := r.Navigate(context.Background(), "/no/where"); err != nil {
		t.Fatalf("catch-all navigate: %v", err)
	}
	if r.Current().Route.Name != route.NameNotFound {
		t.Fatalf("expected not found, got %+v", r.Current().Route)
	}
}

func TestGuardedLoginRouteIsALoop(t *testing.T) {
	table, err := route.NewTable([]route.Descriptor{
		{Path: "/auth/login", Name: route.NameLogin, Meta: route.Meta{RequiresAuth: true}},
		{Path: "/secret", Name: "Secret", Meta: route.Meta{RequiresAuth: true}},
	})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	r := New(table, guard.New(guard.Config{}, &switchSession{}, nil, nil, nil), nil)
	if _, err := r.Push(context.Background(), "/secret"); !errors.Is(err, ErrRedirectLoop) {
		t.Fatalf("expected ErrRedirectLoop, got %v", err)
	}
}
