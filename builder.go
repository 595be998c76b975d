package labauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/labkm/labauth/guard"
	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/notify"
	"github.com/labkm/labauth/refresh"
	"github.com/labkm/labauth/route"
	"github.com/labkm/labauth/router"
	"github.com/labkm/labauth/session"
	"github.com/labkm/labauth/store"
	"github.com/labkm/labauth/transport"
)

// Builder assembles a [Client]. A Builder is single use.
type Builder struct {
	config Config

	store      store.Store
	redis      redis.UniversalClient
	notifier   notify.Notifier
	navigator  transport.Navigator
	logger     *slog.Logger
	httpClient *http.Client
	routes     *route.Table

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore supplies the credential store, overriding Storage.Backend.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis supplies the client used by the redis backend. The Client does
// not close a supplied Redis client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithNotifier supplies the sink for user-visible notices.
func (b *Builder) WithNotifier(n notify.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithNavigator replaces the built-in router as the target of login
// redirects.
func (b *Builder) WithNavigator(n transport.Navigator) *Builder {
	b.navigator = n
	return b
}

// WithLogger sets the logger shared by every component.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithHTTPClient sets the client used for API calls and refresh exchanges.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithRoutes replaces the route table.
func (b *Builder) WithRoutes(t *route.Table) *Builder {
	b.routes = t
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles request latency buckets. It has no effect
// unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. The session
// is hydrated from the store before Build returns.
func (b *Builder) Build(ctx context.Context) (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	b.built = true

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = NewLogger(cfg.Log.Level, cfg.Log.Format, nil)
	}

	c := &Client{cfg: cfg, logger: logger}

	// -------- METRICS --------
	c.metrics = metrics.New(metrics.Config{
		Enabled:                 cfg.Metrics.Enabled,
		EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
	})

	// -------- STORE --------
	st, err := b.buildStore(c, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	c.store = st

	// -------- NOTIFY --------
	sink := b.notifier
	if sink == nil {
		sink = defaultNotifier(cfg.Notify, logger)
	}
	c.dispatcher = notify.NewDispatcher(notify.DispatcherConfig{
		Async:      cfg.Notify.Async,
		BufferSize: cfg.Notify.BufferSize,
		DropIfFull: cfg.Notify.DropIfFull,
	}, sink)
	var notifier notify.Notifier = sink
	if c.dispatcher != nil {
		notifier = c.dispatcher
	}

	// -------- TRANSPORT + REFRESH --------
	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c.refresher = refresh.NewCoordinator(refresh.Config{
		BaseURL:  cfg.Transport.BaseURL,
		Path:     cfg.Refresh.Path,
		Timeout:  cfg.Transport.Timeout,
		Coalesce: cfg.Refresh.Coalesce,
	}, st, httpClient, c.metrics, logger)

	c.transport, err = transport.New(cfg.Transport, transport.Deps{
		Store:      st,
		Refresher:  c.refresher,
		Notifier:   notifier,
		Metrics:    c.metrics,
		Logger:     logger,
		HTTPClient: httpClient,
	})
	if err != nil {
		c.closeOwned()
		return nil, err
	}

	// -------- SESSION --------
	c.session, err = session.New(ctx, cfg.Session, session.Deps{
		Transport: c.transport,
		Refresher: c.refresher,
		Metrics:   c.metrics,
		Logger:    logger,
	})
	if err != nil {
		c.closeOwned()
		return nil, err
	}

	// -------- ROUTES + GUARD + ROUTER --------
	table := b.routes
	if table == nil && cfg.RoutesFile != "" {
		table, err = route.LoadTable(cfg.RoutesFile)
		if err != nil {
			c.closeOwned()
			return nil, fmt.Errorf("load routes: %w", err)
		}
	}
	if table == nil {
		table = route.DefaultTable()
	}
	c.guard = guard.New(cfg.Guard, c.session, nil, c.metrics, logger)
	c.router = router.New(table, c.guard, logger)

	var nav transport.Navigator = c.router
	if b.navigator != nil {
		nav = b.navigator
	}
	c.transport.SetNavigator(nav)
	c.session.SetNavigator(nav)

	logger.Debug("labauth client built",
		slog.String("store", cfg.Storage.Backend),
		slog.Bool("logged_in", c.session.IsLoggedIn()),
		slog.Bool("metrics", cfg.Metrics.Enabled),
	)
	return c, nil
}

func (b *Builder) buildStore(c *Client, cfg StorageConfig, logger *slog.Logger) (store.Store, error) {
	if b.store != nil {
		return b.store, nil
	}
	switch cfg.Backend {
	case StoreMemory:
		return store.NewMemoryStore(), nil
	case StoreFile:
		return store.NewFileStore(cfg.Path, logger)
	case StoreRedis:
		rdb := b.redis
		if rdb == nil {
			owned := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			c.ownedRedis = owned
			rdb = owned
		}
		return store.NewRedisStore(rdb, cfg.RedisPrefix, logger), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Backend)
}

func defaultNotifier(cfg NotifyConfig, logger *slog.Logger) notify.Notifier {
	switch cfg.Sink {
	case "json":
		return notify.NewJSONWriterNotifier(os.Stderr)
	case "none":
		return notify.NoOp{}
	}
	return notify.SlogNotifier{Logger: logger}
}
