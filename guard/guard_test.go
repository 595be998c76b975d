package guard

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/route"
)

type fakeSession bool

func (f fakeSession) IsLoggedIn() bool { return bool(f) }

type titleRecorder struct{ titles []string }

func (r *titleRecorder) SetTitle(title string) { r.titles = append(r.titles, title) }

func resolve(t *testing.T, target string) route.Match {
	t.Helper()
	m, err := route.DefaultTable().Resolve(target)
	if err != nil {
		t.Fatalf("resolve %s: %v", target, err)
	}
	return m
}

func TestDecideEveryProtectedRoute(t *testing.T) {
	g := New(DefaultConfig(), nil, nil, nil, nil)
	table := route.DefaultTable()
	params := map[string]string{"id": "5"}

	for _, d := range table.Routes() {
		path, err := table.PathFor(d.Name, params)
		if err != nil {
			continue
		}
		to := resolve(t, path+"?from=test")

		anon := g.Decide(to, false)
		authed := g.Decide(to, true)
		if authed.Action != Proceed {
			t.Fatalf("%s: logged in navigation must proceed", d.Name)
		}
		if !d.Meta.RequiresAuth {
			if anon.Action != Proceed {
				t.Fatalf("%s: public route redirected", d.Name)
			}
			continue
		}
		if anon.Action != RedirectToLogin || anon.Target != route.NameLogin {
			t.Fatalf("%s: expected login redirect, got %+v", d.Name, anon)
		}
		if anon.Query.Get(RedirectParam) != to.FullPath {
			t.Fatalf("%s: redirect param %q, want %q", d.Name, anon.Query.Get(RedirectParam), to.FullPath)
		}
	}
}

func TestDecisionLocation(t *testing.T) {
	g := New(DefaultConfig(), nil, nil, nil, nil)
	d := g.Decide(resolve(t, "/achievements/create"), false)
	if loc := d.Location(route.DefaultTable()); loc != "/auth/login?redirect=%2Fachievements%2Fcreate" {
		t.Fatalf("location %q", loc)
	}
	if loc := g.Decide(resolve(t, "/"), false).Location(route.DefaultTable()); loc != "" {
		t.Fatalf("proceed has no location, got %q", loc)
	}
}

func TestBeforeEachSetsTitle(t *testing.T) {
	titles := &titleRecorder{}
	m := metrics.New(metrics.Config{Enabled: true})
	g := New(Config{}, fakeSession(false), titles, m, slog.New(slog.NewTextHandler(io.Discard, nil)))

	g.BeforeEach(context.Background(), resolve(t, "/knowledge_chat"), route.Match{})
	g.BeforeEach(context.Background(), resolve(t, "/profile"), route.Match{})
	g.BeforeEach(context.Background(), route.Match{Path: "/x"}, route.Match{})

	want := []string{
		"Knowledge Chat - " + DefaultAppTitle,
		"Profile - " + DefaultAppTitle,
		DefaultAppTitle,
	}
	if len(titles.titles) != len(want) {
		t.Fatalf("titles %v", titles.titles)
	}
	for i := range want {
		if titles.titles[i] != want[i] {
			t.Fatalf("title %d = %q, want %q", i, titles.titles[i], want[i])
		}
	}
	if m.Value(metrics.MetricGuardRedirect) != 1 {
		t.Fatal("expected one guard redirect")
	}
}
