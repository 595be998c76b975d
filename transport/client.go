package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labkm/labauth/internal"
	"github.com/labkm/labauth/jwt"
	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/notify"
	"github.com/labkm/labauth/store"
)

// Refresher exchanges a refresh token for a new access token. The
// implementation persists the new token before returning.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Navigator is the routing primitive used for the login redirect.
type Navigator interface {
	CurrentPath() string
	Navigate(ctx context.Context, path string) error
}

// Hooks keep in-memory session state consistent with store mutations made by
// the transport. They are installed after construction because the session
// is built on top of the transport.
type Hooks struct {
	OnTokenRefreshed     func(ctx context.Context, accessToken string)
	OnCredentialsCleared func(ctx context.Context)
}

// Config controls the transport.
type Config struct {
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each attempt. Default 60s.
	Timeout time.Duration `yaml:"timeout"`
	// LoginPath is the route the client is sent to when the session is
	// unrecoverable.
	LoginPath string `yaml:"login_path"`
	// RedirectDelay lets the expiry notice render before navigating.
	RedirectDelay time.Duration `yaml:"redirect_delay"`
	// PublicPaths are API paths expected to be called without a token.
	PublicPaths []string `yaml:"public_paths"`
	// ProactiveRefreshWindow refreshes before sending when the access
	// token's exp claim falls inside the window. Zero disables it.
	ProactiveRefreshWindow time.Duration `yaml:"proactive_refresh_window"`
	UserAgent              string        `yaml:"user_agent"`
}

// DefaultConfig returns the transport defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:       60 * time.Second,
		LoginPath:     "/auth/login",
		RedirectDelay: 500 * time.Millisecond,
		PublicPaths:   []string{"/auth/login", "/auth/register", "/auth/forgot-password"},
		UserAgent:     "labauth",
	}
}

// Deps are the collaborators of a [Client].
type Deps struct {
	Store      store.Store
	Refresher  Refresher
	Navigator  Navigator
	Notifier   notify.Notifier
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Client is the authenticated HTTP client. It is safe for concurrent use.
type Client struct {
	cfg       Config
	base      *url.URL
	http      *http.Client
	store     store.Store
	tokens    store.TokenReader
	refresher Refresher
	navigator Navigator
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu         sync.RWMutex
	requestIC  []RequestInterceptor
	responseIC []ResponseInterceptor
	hooks      Hooks

	redirectMu     sync.Mutex
	redirectTimer  *time.Timer
	redirectClosed bool
}

// New builds a Client. Store is required; the other dependencies default to
// inert implementations.
func New(cfg Config, deps Deps) (*Client, error) {
	if deps.Store == nil {
		return nil, errors.New("transport: store is required")
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = def.LoginPath
	}
	if cfg.RedirectDelay < 0 {
		cfg.RedirectDelay = 0
	}
	if cfg.PublicPaths == nil {
		cfg.PublicPaths = def.PublicPaths
	}

	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("transport: invalid base url: %w", err)
		}
		base = u
	}

	c := &Client{
		cfg:       cfg,
		base:      base,
		http:      deps.HTTPClient,
		store:     deps.Store,
		tokens:    store.Tokens{Store: deps.Store},
		refresher: deps.Refresher,
		navigator: deps.Navigator,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.notifier == nil {
		c.notifier = notify.NoOp{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.requestIC = []RequestInterceptor{
		requestIDInterceptor,
		c.bearerInterceptor,
		normalizeInterceptor,
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// UseRequest registers an interceptor that runs after the built-in ones.
func (c *Client) UseRequest(ic RequestInterceptor) {
	c.mu.Lock()
	c.requestIC = append(c.requestIC, ic)
	c.mu.Unlock()
}

// UseResponse registers an observer for successful responses.
func (c *Client) UseResponse(ic ResponseInterceptor) {
	c.mu.Lock()
	c.responseIC = append(c.responseIC, ic)
	c.mu.Unlock()
}

// SetHooks installs session consistency hooks.
func (c *Client) SetHooks(h Hooks) {
	c.mu.Lock()
	c.hooks = h
	c.mu.Unlock()
}

// SetNavigator installs the navigator used for login redirects.
func (c *Client) SetNavigator(n Navigator) {
	c.mu.Lock()
	c.navigator = n
	c.mu.Unlock()
}

// Store returns the credential store the transport reads tokens from.
func (c *Client) Store() store.Store { return c.store }

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// DoJSON issues req and decodes a successful body into out.
func (c *Client) DoJSON(ctx context.Context, req *Request, out any) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return resp, err
	}
	if out != nil {
		if err := resp.Decode(out); err != nil {
			return resp, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return resp, nil
}

// Do sends req through the interceptor chain. Failed responses are reported
// to the notifier once and returned as [*Error]; a token expiry with a stored
// refresh token is recovered transparently.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, c.fail(ctx, nil, &Error{Kind: KindMalformedRequest, Err: errors.New("nil request")}, "Request error: nil request")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id := requestIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	p := &pending{req: req, id: id}
	c.maybeRefreshEarly(ctx, p)
	return c.run(ctx, p)
}

func (c *Client) run(ctx context.Context, p *pending) (*Response, error) {
	p.attempt++

	call, err := c.prepare(ctx, p)
	if err != nil {
		te := &Error{
			Kind:      KindMalformedRequest,
			RequestID: p.id,
			Method:    p.req.Method,
			Path:      p.req.Path,
			Err:       err,
		}
		return nil, c.fail(ctx, p, te, "Request error: "+err.Error())
	}

	started := time.Now()
	resp, err := c.send(ctx, call)
	c.metrics.Observe(metrics.MetricRequestLatency, time.Since(started))
	if err != nil {
		return nil, c.transportFailure(ctx, p, call, err)
	}
	resp.RequestID = p.id
	resp.Retried = p.retried

	if resp.Status >= 200 && resp.Status < 300 {
		c.logger.DebugContext(ctx, "response received",
			slog.String("request_id", p.id),
			slog.String("method", call.Method),
			slog.String("path", call.Path),
			slog.Int("status", resp.Status),
			slog.Int("attempt", p.attempt),
		)
		if p.retried {
			c.metrics.Inc(metrics.MetricRetrySuccess)
		}
		c.mu.RLock()
		observers := c.responseIC
		c.mu.RUnlock()
		for _, ic := range observers {
			ic(ctx, call, resp)
		}
		return resp, nil
	}

	return c.statusFailure(ctx, p, call, resp)
}

func (c *Client) prepare(ctx context.Context, p *pending) (*Call, error) {
	req := p.req
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	u, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	header := make(http.Header, len(req.Header)+3)
	for k, v := range req.Header {
		header[k] = append([]string(nil), v...)
	}
	if c.cfg.UserAgent != "" && header.Get("User-Agent") == "" {
		header.Set("User-Agent", c.cfg.UserAgent)
	}
	header.Set("Accept", "application/json")

	call := &Call{
		ID:      p.id,
		Attempt: p.attempt,
		Retried: p.retried,
		Method:  method,
		URL:     u,
		Path:    req.Path,
		Header:  header,
		Body:    req.Body,
	}

	c.mu.RLock()
	chain := c.requestIC
	c.mu.RUnlock()
	for _, ic := range chain {
		if err := ic(ctx, call); err != nil {
			return nil, err
		}
	}

	if auth := call.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		p.sentToken = strings.TrimPrefix(auth, "Bearer ")
	} else {
		p.sentToken = ""
	}

	c.logger.DebugContext(ctx, "sending request",
		slog.String("request_id", p.id),
		slog.String("method", method),
		slog.String("url", u.Redacted()),
		internal.TokenAttr("token", p.sentToken),
		slog.Int("attempt", p.attempt),
	)
	return call, nil
}

func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	u := ref
	if c.base != nil && !ref.IsAbs() {
		joined := *c.base
		joined.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
		joined.RawQuery = ref.RawQuery
		u = &joined
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("cannot resolve %q without a base url", path)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func (c *Client) send(ctx context.Context, call *Call) (*Response, error) {
	c.metrics.Inc(metrics.MetricRequestSent)

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if call.encoded != nil {
		body = bytes.NewReader(call.encoded)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, call.Method, call.URL.String(), body)
	if err != nil {
		return nil, &buildError{err: err}
	}
	httpReq.Header = call.Header

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   data,
	}, nil
}

// buildError marks failures that happened before anything went on the wire.
type buildError struct{ err error }

func (e *buildError) Error() string { return e.err.Error() }
func (e *buildError) Unwrap() error { return e.err }

// maybeRefreshEarly refreshes ahead of sending when the stored access token
// is about to expire. Failures are ignored; the 401 path owns recovery.
func (c *Client) maybeRefreshEarly(ctx context.Context, p *pending) {
	if c.cfg.ProactiveRefreshWindow <= 0 || c.refresher == nil {
		return
	}
	if p.req.Header.Get("Authorization") != "" || c.isPublicPath(p.req.Path) {
		return
	}
	access := c.tokens.AccessToken(ctx)
	if access == "" || !jwt.ExpiresWithin(access, c.cfg.ProactiveRefreshWindow, time.Now()) {
		return
	}
	refreshToken := c.tokens.RefreshToken(ctx)
	if refreshToken == "" {
		return
	}
	c.metrics.Inc(metrics.MetricProactiveRefresh)
	token, err := c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		c.logger.InfoContext(ctx, "proactive refresh failed", slog.String("request_id", p.id), slog.Any("error", err))
		return
	}
	c.tokenRefreshed(ctx, token)
}

func (c *Client) currentHooks() Hooks {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hooks
}

func (c *Client) tokenRefreshed(ctx context.Context, token string) {
	if h := c.currentHooks().OnTokenRefreshed; h != nil {
		h(ctx, token)
	}
}
