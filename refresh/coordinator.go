package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/labkm/labauth/internal"
	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/store"
	"github.com/labkm/labauth/transport"
)

// DefaultPath is the refresh endpoint.
const DefaultPath = "/api/v1/auth/refresh"

// Config controls the exchange.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
	// Coalesce shares one exchange between concurrent callers holding the
	// same refresh token. When false every caller performs its own exchange.
	Coalesce bool `yaml:"coalesce"`
}

// Coordinator implements transport.Refresher.
type Coordinator struct {
	cfg     Config
	http    *http.Client
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	group   singleflight.Group
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// NewCoordinator creates a Coordinator that persists new access tokens into st.
func NewCoordinator(cfg Config, st store.Store, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Coordinator {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		cfg:     cfg,
		http:    httpClient,
		store:   st,
		metrics: m,
		logger:  logger,
	}
}

// Refresh returns a new access token for refreshToken. Every failure wraps
// transport.ErrRefreshFailed.
func (c *Coordinator) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", fmt.Errorf("%w: %w", transport.ErrRefreshFailed, transport.ErrNoRefreshToken)
	}
	if !c.cfg.Coalesce {
		return c.exchangeAndStore(ctx, refreshToken)
	}

	ch := c.group.DoChan(refreshToken, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others.
		return c.exchangeAndStore(context.WithoutCancel(ctx), refreshToken)
	})
	select {
	case res := <-ch:
		if res.Shared {
			c.metrics.Inc(metrics.MetricRefreshCoalesced)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", transport.ErrRefreshFailed, ctx.Err())
	}
}

func (c *Coordinator) exchangeAndStore(ctx context.Context, refreshToken string) (string, error) {
	token, err := c.exchange(ctx, refreshToken)
	if err != nil {
		c.metrics.Inc(metrics.MetricRefreshFailure)
		return "", fmt.Errorf("%w: %w", transport.ErrRefreshFailed, err)
	}
	if c.store != nil {
		if err := c.store.Set(ctx, store.KeyToken, token); err != nil {
			c.metrics.Inc(metrics.MetricRefreshFailure)
			return "", fmt.Errorf("%w: %w", transport.ErrRefreshFailed, err)
		}
	}
	c.metrics.Inc(metrics.MetricRefreshSuccess)
	c.logger.InfoContext(ctx, "access token refreshed", internal.TokenAttr("token", token))
	return token, nil
}

func (c *Coordinator) exchange(ctx context.Context, refreshToken string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(c.cfg.Path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &transport.Error{
			Kind:    statusKind(resp.StatusCode),
			Status:  resp.StatusCode,
			Method:  http.MethodPost,
			Path:    c.cfg.Path,
			Body:    body,
			Message: strings.TrimSpace(string(body)),
		}
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", transport.ErrMalformedResponse, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: missing access_token", transport.ErrMalformedResponse)
	}
	return out.AccessToken, nil
}

func statusKind(status int) transport.Kind {
	switch status {
	case http.StatusUnauthorized:
		return transport.KindTokenExpired
	case http.StatusForbidden:
		return transport.KindForbidden
	case http.StatusBadRequest:
		return transport.KindBadRequest
	case http.StatusNotFound:
		return transport.KindNotFound
	case http.StatusInternalServerError:
		return transport.KindServerError
	}
	return transport.KindUnclassified
}
