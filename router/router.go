// Package router is the in-memory navigation primitive: it resolves
// locations against the route table, runs the guard and follows its login
// redirect. It implements transport.Navigator.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/labkm/labauth/guard"
	"github.com/labkm/labauth/route"
)

// ErrRedirectLoop is returned when the login route itself is guarded.
var ErrRedirectLoop = errors.New("router: redirect loop")

// MaxHistory bounds the paths History keeps; older entries are dropped.
const MaxHistory = 50

// Router tracks the current location. It is safe for concurrent use.
type Router struct {
	table  *route.Table
	guard  *guard.Guard
	logger *slog.Logger

	mu      sync.RWMutex
	current route.Match
	title   string
	history []string
}

// New builds a Router positioned nowhere; the first Push sets the location.
// The router installs itself as the guard's title setter.
func New(table *route.Table, g *guard.Guard, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{table: table, guard: g, logger: logger}
	if g != nil {
		g.SetTitleSetter(r)
	}
	return r
}

// Push navigates to target, a path with optional query.
func (r *Router) Push(ctx context.Context, target string) (route.Match, error) {
	to, err := r.table.Resolve(target)
	if err != nil {
		return route.Match{}, err
	}
	return r.transition(ctx, to, false)
}

// PushNamed navigates to a named route.
func (r *Router) PushNamed(ctx context.Context, name string, params map[string]string, query url.Values) (route.Match, error) {
	path, err := r.table.PathFor(name, params)
	if err != nil {
		return route.Match{}, err
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return r.Push(ctx, path)
}

func (r *Router) transition(ctx context.Context, to route.Match, redirected bool) (route.Match, error) {
	from := r.Current()
	if r.guard != nil {
		d := r.guard.BeforeEach(ctx, to, from)
		if d.Action == guard.RedirectToLogin {
			if redirected {
				return route.Match{}, fmt.Errorf("%w: %s", ErrRedirectLoop, to.FullPath)
			}
			next, err := r.table.Resolve(d.Location(r.table))
			if err != nil {
				return route.Match{}, err
			}
			return r.transition(ctx, next, true)
		}
	}

	r.mu.Lock()
	r.current = to
	r.history = append(r.history, to.FullPath)
	if n := len(r.history); n > MaxHistory {
		r.history = append(r.history[:0:0], r.history[n-MaxHistory:]...)
	}
	if r.guard == nil {
		r.title = to.Route.Meta.Title
	}
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "navigated", slog.String("path", to.FullPath), slog.String("route", to.Route.Name))
	return to, nil
}

// Navigate implements transport.Navigator.
func (r *Router) Navigate(ctx context.Context, path string) error {
	_, err := r.Push(ctx, path)
	return err
}

// CurrentPath implements transport.Navigator. The query is not included.
func (r *Router) CurrentPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Path
}

// Current returns the current location.
func (r *Router) Current() route.Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// SetTitle implements guard.TitleSetter.
func (r *Router) SetTitle(title string) {
	r.mu.Lock()
	r.title = title
	r.mu.Unlock()
}

// Title returns the page title set by the last transition.
func (r *Router) Title() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.title
}

// History returns up to MaxHistory most recent full paths, oldest first.
func (r *Router) History() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.history...)
}

// Table returns the route table.
func (r *Router) Table() *route.Table { return r.table }
