// Package guard decides whether a navigation may proceed and titles the
// page.
package guard

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/route"
)

// DefaultAppTitle is the page title suffix and the fallback title.
const DefaultAppTitle = "Lab Knowledge Management System"

// RedirectParam carries the originally requested full path to the login
// route.
const RedirectParam = "redirect"

// Action is what the router should do with a navigation.
type Action int

const (
	Proceed Action = iota
	RedirectToLogin
)

func (a Action) String() string {
	if a == RedirectToLogin {
		return "redirect_to_login"
	}
	return "proceed"
}

// Decision is the outcome of a navigation check.
type Decision struct {
	Action Action
	// Target is the login route name and Query its parameters when
	// Action is RedirectToLogin.
	Target string
	Query  url.Values
	Title  string
}

// Location renders a redirect decision as a path with query. It is empty
// for Proceed.
func (d Decision) Location(table *route.Table) string {
	if d.Action != RedirectToLogin {
		return ""
	}
	path, err := table.PathFor(d.Target, nil)
	if err != nil {
		path = "/auth/login"
	}
	if len(d.Query) > 0 {
		path += "?" + d.Query.Encode()
	}
	return path
}

// Session is the part of session.State the guard reads.
type Session interface {
	IsLoggedIn() bool
}

// TitleSetter receives the page title on every transition.
type TitleSetter interface {
	SetTitle(title string)
}

// Config names the title suffix and the route unauthenticated users are
// sent to.
type Config struct {
	AppTitle  string `yaml:"app_title"`
	LoginName string `yaml:"login_name"`
}

// DefaultConfig returns the lab title and the Login route.
func DefaultConfig() Config {
	return Config{AppTitle: DefaultAppTitle, LoginName: route.NameLogin}
}

// Guard runs before every navigation.
type Guard struct {
	cfg     Config
	session Session
	titles  TitleSetter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds a Guard. titles, m and logger may be nil.
func New(cfg Config, session Session, titles TitleSetter, m *metrics.Metrics, logger *slog.Logger) *Guard {
	def := DefaultConfig()
	if cfg.AppTitle == "" {
		cfg.AppTitle = def.AppTitle
	}
	if cfg.LoginName == "" {
		cfg.LoginName = def.LoginName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{cfg: cfg, session: session, titles: titles, metrics: m, logger: logger}
}

// SetTitleSetter replaces the title receiver.
func (g *Guard) SetTitleSetter(t TitleSetter) { g.titles = t }

// Decide is the pure access rule: a route requiring auth redirects an
// anonymous session to login carrying the requested full path.
func (g *Guard) Decide(to route.Match, loggedIn bool) Decision {
	d := Decision{Action: Proceed, Title: g.Title(to)}
	if to.Route.Meta.RequiresAuth && !loggedIn {
		d.Action = RedirectToLogin
		d.Target = g.cfg.LoginName
		d.Query = url.Values{RedirectParam: {to.FullPath}}
	}
	return d
}

// Title is "<route title> - <app title>", or the app title alone.
func (g *Guard) Title(to route.Match) string {
	if to.Route.Meta.Title == "" {
		return g.cfg.AppTitle
	}
	return to.Route.Meta.Title + " - " + g.cfg.AppTitle
}

// BeforeEach titles the page and decides the transition.
func (g *Guard) BeforeEach(ctx context.Context, to, from route.Match) Decision {
	loggedIn := g.session != nil && g.session.IsLoggedIn()
	d := g.Decide(to, loggedIn)
	if g.titles != nil {
		g.titles.SetTitle(d.Title)
	}

	if d.Action == RedirectToLogin {
		g.metrics.Inc(metrics.MetricGuardRedirect)
		g.logger.InfoContext(ctx, "navigation requires login",
			slog.String("to", to.FullPath),
			slog.String("from", from.FullPath),
		)
		return d
	}
	g.logger.DebugContext(ctx, "navigation allowed",
		slog.String("to", to.Path),
		slog.String("route", to.Route.Name),
		slog.Bool("logged_in", loggedIn),
	)
	return d
}
