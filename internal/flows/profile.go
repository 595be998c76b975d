package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/labkm/labauth/store"
	"github.com/labkm/labauth/transport"
)

// ProfileErrors lets callers choose the sentinel a malformed profile wraps.
type ProfileErrors struct {
	MalformedResponse error
}

// ProfileDeps captures profile fetch dependencies.
type ProfileDeps struct {
	Path    string
	Get     func(ctx context.Context, path string) (*transport.Response, error)
	Persist func(ctx context.Context, key, value string) error

	Errors ProfileErrors
}

// RunFetchProfile fetches the current user and overwrites the cached copy.
// The returned JSON is compacted exactly as stored.
func RunFetchProfile(ctx context.Context, deps ProfileDeps) (json.RawMessage, error) {
	resp, err := deps.Get(ctx, deps.Path)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if len(resp.Body) == 0 || json.Compact(&buf, resp.Body) != nil {
		return nil, fmt.Errorf("%w: user profile is not JSON", deps.Errors.MalformedResponse)
	}
	if buf.Len() == 0 || buf.Bytes()[0] != '{' {
		return nil, fmt.Errorf("%w: user profile is not an object", deps.Errors.MalformedResponse)
	}

	raw := json.RawMessage(buf.Bytes())
	if err := deps.Persist(ctx, store.KeyUser, string(raw)); err != nil {
		return raw, err
	}
	return raw, nil
}
