package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// RequestInterceptor runs before every attempt, retries included. Returning
// an error aborts the call as a malformed request.
type RequestInterceptor func(ctx context.Context, call *Call) error

// ResponseInterceptor observes every successful response.
type ResponseInterceptor func(ctx context.Context, call *Call, resp *Response)

// RequestIDHeader carries the per-request id; retries reuse it.
const RequestIDHeader = "X-Request-ID"

func requestIDInterceptor(_ context.Context, call *Call) error {
	if call.Header.Get(RequestIDHeader) == "" {
		call.Header.Set(RequestIDHeader, call.ID)
	}
	return nil
}

// bearerInterceptor attaches the stored access token. A caller-provided
// Authorization header wins on the first attempt only; the retry after a
// refresh always carries the refreshed token.
func (c *Client) bearerInterceptor(ctx context.Context, call *Call) error {
	if call.Header.Get("Authorization") != "" && !call.Retried {
		return nil
	}

	token := c.tokens.AccessToken(ctx)
	if token != "" {
		call.Header.Set("Authorization", "Bearer "+token)
		return nil
	}

	if !c.isPublicPath(call.Path) {
		c.logger.WarnContext(ctx, "sending request to protected path without token",
			slog.String("request_id", call.ID),
			slog.String("path", call.Path),
		)
	}
	return nil
}

func (c *Client) isPublicPath(path string) bool {
	for _, p := range c.cfg.PublicPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// normalizeInterceptor encodes the body, replacing top-level null fields of a
// JSON object with "". Non-object payloads pass through unchanged.
func normalizeInterceptor(_ context.Context, call *Call) error {
	if call.Body == nil {
		call.encoded = nil
		return nil
	}
	raw, err := normalizeBody(call.Body)
	if err != nil {
		return err
	}
	call.encoded = raw
	call.Body = json.RawMessage(raw)
	if call.Header.Get("Content-Type") == "" {
		call.Header.Set("Content-Type", "application/json")
	}
	return nil
}

func normalizeBody(body any) ([]byte, error) {
	var raw []byte
	switch b := body.(type) {
	case json.RawMessage:
		raw = b
	case []byte:
		raw = b
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		raw = encoded
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("decode request body: %w", err)
	}
	changed := false
	for k, v := range fields {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			fields[k] = json.RawMessage(`""`)
			changed = true
		}
	}
	if !changed {
		return trimmed, nil
	}
	return json.Marshal(fields)
}
