package flows

import (
	"context"

	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/transport"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Path     string
	Post     func(ctx context.Context, path string, body any) (*transport.Response, error)
	Clear    func(ctx context.Context)
	Redirect func(ctx context.Context) error
	Warn     func(msg string, args ...any)

	MetricInc func(metrics.MetricID)
}

// LogoutResult reports what went wrong along the way. Local state is cleared
// regardless.
type LogoutResult struct {
	ServerErr   error
	RedirectErr error
}

// RunLogout invalidates the server session best effort, then always clears
// local credentials and redirects to the login route.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	var res LogoutResult
	if deps.Post != nil {
		if _, err := deps.Post(ctx, deps.Path, nil); err != nil {
			res.ServerErr = err
			if deps.Warn != nil {
				deps.Warn("server logout failed", "error", err)
			}
		}
	}

	deps.Clear(ctx)
	inc(deps.MetricInc, metrics.MetricLogout)

	if deps.Redirect != nil {
		res.RedirectErr = deps.Redirect(ctx)
	}
	return res
}
