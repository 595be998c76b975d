package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/notify"
	"github.com/labkm/labauth/store"
)

// User-visible fallback messages.
const (
	MsgTimeout          = "Request timed out, please try again later"
	MsgBadRequest       = "Invalid request parameters"
	MsgPermissionDenied = "You do not have permission to perform this action"
	MsgSessionExpired   = "Login expired, please log in again"
	MsgNotFound         = "The requested resource does not exist"
	MsgServerError      = "Internal server error"
	MsgUnreachable      = "Server not responding, please check your network connection"
)

func (c *Client) transportFailure(ctx context.Context, p *pending, call *Call, err error) error {
	te := &Error{
		RequestID: p.id,
		Method:    call.Method,
		Path:      call.Path,
		Err:       err,
	}

	var be *buildError
	if errors.As(err, &be) {
		te.Kind = KindMalformedRequest
		return c.fail(ctx, p, te, "Request error: "+be.err.Error())
	}

	// The caller gave up; nothing to tell the user.
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}

	if isTimeout(err) {
		te.Kind = KindTimeout
		c.metrics.Inc(metrics.MetricRequestTimeout)
		return c.fail(ctx, p, te, MsgTimeout)
	}

	te.Kind = KindUnreachable
	c.metrics.Inc(metrics.MetricRequestUnreachable)
	return c.fail(ctx, p, te, MsgUnreachable)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) statusFailure(ctx context.Context, p *pending, call *Call, resp *Response) (*Response, error) {
	eb := parseErrorBody(resp.Body)
	te := &Error{
		Status:    resp.Status,
		Message:   eb.text(),
		RequestID: p.id,
		Method:    call.Method,
		Path:      call.Path,
		Body:      resp.Body,
	}

	c.logger.WarnContext(ctx, "request failed",
		slog.String("request_id", p.id),
		slog.String("method", call.Method),
		slog.String("path", call.Path),
		slog.Int("status", resp.Status),
		slog.String("message", te.Message),
	)

	switch resp.Status {
	case http.StatusBadRequest:
		te.Kind = KindBadRequest
		return resp, c.fail(ctx, p, te, orDefault(te.Message, MsgBadRequest))
	case http.StatusUnauthorized:
		return c.unauthorized(ctx, p, eb, te, resp)
	case http.StatusForbidden:
		te.Kind = KindForbidden
		return resp, c.fail(ctx, p, te, orDefault(te.Message, MsgPermissionDenied))
	case http.StatusNotFound:
		te.Kind = KindNotFound
		return resp, c.fail(ctx, p, te, MsgNotFound)
	case http.StatusInternalServerError:
		te.Kind = KindServerError
		return resp, c.fail(ctx, p, te, MsgServerError)
	default:
		te.Kind = KindUnclassified
		return resp, c.fail(ctx, p, te, fmt.Sprintf("Request failed with status code %d", resp.Status))
	}
}

// unauthorized is the 401 decision point: permission denial stops here,
// token expiry gets at most one refresh-and-retry.
func (c *Client) unauthorized(ctx context.Context, p *pending, eb errorBody, te *Error, resp *Response) (*Response, error) {
	if classifyUnauthorizedBody(eb) == KindPermissionDenied {
		te.Kind = KindPermissionDenied
		c.metrics.Inc(metrics.MetricPermissionDenied)
		return resp, c.fail(ctx, p, te, orDefault(te.Message, MsgPermissionDenied))
	}

	te.Kind = KindTokenExpired
	c.metrics.Inc(metrics.MetricTokenExpired)

	if p.retried {
		te.Err = ErrRetryExhausted
		return resp, c.expire(ctx, p, te)
	}

	// Another request already refreshed while this one was in flight.
	if current := c.tokens.AccessToken(ctx); current != "" && p.sentToken != "" && current != p.sentToken {
		p.markRetried()
		c.metrics.Inc(metrics.MetricRetryIssued)
		c.logger.InfoContext(ctx, "token changed in flight, retrying", slog.String("request_id", p.id))
		return c.run(ctx, p)
	}

	refreshToken := c.tokens.RefreshToken(ctx)
	if refreshToken == "" || c.refresher == nil {
		te.Err = ErrNoRefreshToken
		return resp, c.expire(ctx, p, te)
	}

	p.markRetried()
	token, err := c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		c.logger.WarnContext(ctx, "token refresh failed", slog.String("request_id", p.id), slog.Any("error", err))
		if errors.Is(err, ErrRefreshFailed) {
			te.Err = err
		} else {
			te.Err = fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}
		return resp, c.expire(ctx, p, te)
	}

	c.tokenRefreshed(ctx, token)
	c.metrics.Inc(metrics.MetricRetryIssued)
	c.logger.InfoContext(ctx, "token refreshed, retrying request", slog.String("request_id", p.id))
	return c.run(ctx, p)
}

// expire wipes stored credentials, schedules the login redirect and
// reports the expiry once.
func (c *Client) expire(ctx context.Context, p *pending, te *Error) error {
	c.ClearCredentials(ctx)
	c.scheduleLoginRedirect()
	return c.fail(ctx, p, te, MsgSessionExpired)
}

// ClearCredentials removes every stored credential and tells the session.
// Clearing an empty store is a no-op.
func (c *Client) ClearCredentials(ctx context.Context) {
	if err := store.ClearCredentials(ctx, c.store); err != nil {
		c.logger.ErrorContext(ctx, "clearing credentials failed", slog.Any("error", err))
	}
	c.metrics.Inc(metrics.MetricCredentialsCleared)
	if h := c.currentHooks().OnCredentialsCleared; h != nil {
		h(ctx)
	}
}

// scheduleLoginRedirect navigates to the login route after RedirectDelay,
// unless the navigator is already there. Concurrent calls collapse into one
// pending redirect.
func (c *Client) scheduleLoginRedirect() {
	c.mu.RLock()
	nav := c.navigator
	c.mu.RUnlock()
	if nav == nil {
		return
	}
	if strings.Contains(nav.CurrentPath(), c.cfg.LoginPath) {
		return
	}

	c.redirectMu.Lock()
	defer c.redirectMu.Unlock()
	if c.redirectTimer != nil || c.redirectClosed {
		return
	}
	c.metrics.Inc(metrics.MetricLoginRedirect)
	c.redirectTimer = time.AfterFunc(c.cfg.RedirectDelay, func() {
		c.redirectMu.Lock()
		closed := c.redirectClosed
		c.redirectTimer = nil
		c.redirectMu.Unlock()

		if closed {
			return
		}

		if strings.Contains(nav.CurrentPath(), c.cfg.LoginPath) {
			return
		}
		if err := nav.Navigate(context.Background(), c.cfg.LoginPath); err != nil {
			c.logger.Error("login redirect failed", slog.Any("error", err))
		}
	})
}

// Close cancels a pending login redirect.
func (c *Client) Close() {
	c.redirectMu.Lock()
	defer c.redirectMu.Unlock()
	c.redirectClosed = true
	if c.redirectTimer != nil {
		c.redirectTimer.Stop()
		c.redirectTimer = nil
	}
}

func (c *Client) fail(ctx context.Context, p *pending, te *Error, message string) error {
	c.metrics.Inc(metrics.MetricRequestFailed)

	notice := notify.Error(message)
	notice.Kind = string(te.Kind)
	notice.Status = te.Status
	notice.RequestID = te.RequestID
	notice.Path = te.Path
	c.notifier.Notify(ctx, notice)

	attempt := 0
	if p != nil {
		attempt = p.attempt
	}
	c.logger.DebugContext(ctx, "request failure reported",
		slog.String("request_id", te.RequestID),
		slog.String("kind", string(te.Kind)),
		slog.Int("attempt", attempt),
	)
	return te
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
