package labauth

import (
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/labkm/labauth/guard"
	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/notify"
	"github.com/labkm/labauth/refresh"
	"github.com/labkm/labauth/router"
	"github.com/labkm/labauth/session"
	"github.com/labkm/labauth/store"
	"github.com/labkm/labauth/transport"
)

// Client is the application's single authentication object: one session,
// one transport, one router.
type Client struct {
	cfg        Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
	store      store.Store
	dispatcher *notify.Dispatcher
	refresher  *refresh.Coordinator
	transport  *transport.Client
	session    *session.State
	guard      *guard.Guard
	router     *router.Router

	ownedRedis *redis.Client
	closeOnce  sync.Once
	closeErr   error
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return cloneConfig(c.cfg) }

func (c *Client) Session() *session.State { return c.session }
func (c *Client) Transport() *transport.Client { return c.transport }
func (c *Client) Router() *router.Router { return c.router }
func (c *Client) Guard() *guard.Guard { return c.guard }
func (c *Client) Store() store.Store { return c.store }
func (c *Client) Refresher() *refresh.Coordinator { return c.refresher }
func (c *Client) Metrics() *metrics.Metrics { return c.metrics }
func (c *Client) Logger() *slog.Logger { return c.logger }

// MetricsSnapshot returns the current counters and histograms.
func (c *Client) MetricsSnapshot() metrics.Snapshot {
	return c.metrics.Snapshot()
}

// NoticesDropped reports notices discarded by a full async dispatcher.
func (c *Client) NoticesDropped() uint64 {
	if c.dispatcher == nil {
		return 0
	}
	return c.dispatcher.Dropped()
}

// Close cancels a pending login redirect, drains queued notices and closes
// a Redis client the Client opened itself. It is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.transport != nil {
			c.transport.Close()
		}
		c.closeOwned()
	})
	return c.closeErr
}

func (c *Client) closeOwned() {
	if c.dispatcher != nil {
		c.dispatcher.Close()
	}
	if c.ownedRedis != nil {
		c.closeErr = c.ownedRedis.Close()
		c.ownedRedis = nil
	}
}
