//go:build integration
// +build integration

package test

import (
	"context"
	"testing"

	"github.com/labkm/labauth"
	"github.com/labkm/labauth/guard"
	"github.com/labkm/labauth/metrics/export/otel"
	"github.com/labkm/labauth/metrics/export/prometheus"
	"github.com/labkm/labauth/notify"
	"github.com/labkm/labauth/refresh"
	"github.com/labkm/labauth/router"
	"github.com/labkm/labauth/session"
	"github.com/labkm/labauth/store"
	"github.com/labkm/labauth/transport"
)

// Guards the cross-package contracts consumers wire together.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = labauth.New
	_ = labauth.LoadConfig

	var _ transport.Refresher = (*refresh.Coordinator)(nil)
	var _ transport.Navigator = (*router.Router)(nil)
	var _ guard.Session = (*session.State)(nil)
	var _ guard.TitleSetter = (*router.Router)(nil)
	var _ notify.Notifier = (*notify.Dispatcher)(nil)

	var _ store.Store = (*store.MemoryStore)(nil)
	var _ store.Store = (*store.FileStore)(nil)
	var _ store.Store = (*store.RedisStore)(nil)
	var _ store.TokenReader = store.Tokens{}

	var _ prometheus.MetricsSource = (*labauth.Client)(nil)
	var _ otel.MetricsSource = (*labauth.Client)(nil)

	var _ error = labauth.ErrInvalidConfig
	var _ error = transport.ErrMalformedResponse
	var _ error = transport.ErrRefreshFailed
	var _ error = transport.ErrNoRefreshToken

	var _ func(*session.State, context.Context, any) (*session.AuthData, error) = (*session.State).Login
	var _ func(*session.State, context.Context) (string, error) = (*session.State).RefreshAccessToken
	var _ func(*session.State, context.Context) error = (*session.State).Logout
}
