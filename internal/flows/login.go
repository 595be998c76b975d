package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/store"
	"github.com/labkm/labauth/transport"
)

// LoginFailureKind classifies login flow failures for session-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureTransport
	LoginFailureDecode
	LoginFailureMissingFields
	LoginFailurePersist
)

// AuthPayload is the login response body. User is kept raw so fields beyond
// the known profile survive the round trip through the store.
type AuthPayload struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	User         json.RawMessage `json:"user"`
}

// HasUser reports whether the payload carries a JSON object as user.
func (p AuthPayload) HasUser() bool {
	u := bytes.TrimSpace(p.User)
	return len(u) > 0 && u[0] == '{'
}

// StoreValues maps the payload onto credential store keys. Empty fields are
// omitted so a partial payload never blanks existing values.
func (p AuthPayload) StoreValues() map[string]string {
	values := make(map[string]string, 3)
	if p.AccessToken != "" {
		values[store.KeyToken] = p.AccessToken
	}
	if p.RefreshToken != "" {
		values[store.KeyRefreshToken] = p.RefreshToken
	}
	if p.HasUser() {
		var buf bytes.Buffer
		if err := json.Compact(&buf, p.User); err == nil {
			values[store.KeyUser] = buf.String()
		} else {
			values[store.KeyUser] = string(p.User)
		}
	}
	return values
}

// LoginErrors lets callers choose the sentinel a malformed response wraps.
type LoginErrors struct {
	MalformedResponse error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Path    string
	Post    func(ctx context.Context, path string, body any) (*transport.Response, error)
	Persist func(ctx context.Context, values map[string]string) error
	// DecodeUser parses the user object before anything is persisted. A nil
	// func accepts any object.
	DecodeUser func(raw json.RawMessage) (any, error)

	MetricInc func(metrics.MetricID)
	Errors    LoginErrors
}

// LoginResult carries either the accepted payload or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Payload AuthPayload
	// User is whatever DecodeUser returned.
	User any
}

// RunLogin posts credentials and persists the returned tokens and user in
// one batch. Nothing is written unless the response carries both an access
// token and a user.
func RunLogin(ctx context.Context, credentials any, deps LoginDeps) LoginResult {
	resp, err := deps.Post(ctx, deps.Path, credentials)
	if err != nil {
		inc(deps.MetricInc, metrics.MetricLoginFailure)
		return LoginResult{Failure: LoginFailureTransport, Err: err}
	}

	var payload AuthPayload
	if err := resp.Decode(&payload); err != nil {
		inc(deps.MetricInc, metrics.MetricLoginFailure)
		return LoginResult{
			Failure: LoginFailureDecode,
			Err:     fmt.Errorf("%w: %v", deps.Errors.MalformedResponse, err),
		}
	}
	if payload.AccessToken == "" || !payload.HasUser() {
		inc(deps.MetricInc, metrics.MetricLoginFailure)
		return LoginResult{
			Failure: LoginFailureMissingFields,
			Err:     fmt.Errorf("%w: login response lacks access_token or user", deps.Errors.MalformedResponse),
			Payload: payload,
		}
	}
	var user any
	if deps.DecodeUser != nil {
		u, err := deps.DecodeUser(payload.User)
		if err != nil {
			inc(deps.MetricInc, metrics.MetricLoginFailure)
			return LoginResult{
				Failure: LoginFailureMissingFields,
				Err:     fmt.Errorf("%w: login user: %v", deps.Errors.MalformedResponse, err),
				Payload: payload,
			}
		}
		user = u
	}

	if err := deps.Persist(ctx, payload.StoreValues()); err != nil {
		inc(deps.MetricInc, metrics.MetricLoginFailure)
		return LoginResult{Failure: LoginFailurePersist, Err: err, Payload: payload}
	}

	inc(deps.MetricInc, metrics.MetricLoginSuccess)
	return LoginResult{Payload: payload, User: user}
}

func inc(f func(metrics.MetricID), id metrics.MetricID) {
	if f != nil {
		f(id)
	}
}
