package flows

import (
	"context"
	"errors"
	"fmt"
)

// RefreshFailureKind classifies refresh flow failures for session-level
// mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoToken
	RefreshFailureExchange
)

// RefreshResult carries either the new access token or failure metadata.
type RefreshResult struct {
	Failure     RefreshFailureKind
	Err         error
	AccessToken string
}

type RefreshErrors struct {
	RefreshFailed  error
	NoRefreshToken error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	RefreshToken func(ctx context.Context) string
	// Exchange swaps the refresh token for an access token and persists it.
	Exchange func(ctx context.Context, refreshToken string) (string, error)
	// Clear wipes the whole session; a rejected refresh is unrecoverable.
	Clear func(ctx context.Context)

	Errors RefreshErrors
}

// RunRefresh exchanges the stored refresh token. Every failure clears the
// session and wraps Errors.RefreshFailed.
func RunRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	rt := deps.RefreshToken(ctx)
	if rt == "" {
		deps.Clear(ctx)
		return RefreshResult{
			Failure: RefreshFailureNoToken,
			Err:     fmt.Errorf("%w: %w", deps.Errors.RefreshFailed, deps.Errors.NoRefreshToken),
		}
	}

	token, err := deps.Exchange(ctx, rt)
	if err != nil {
		deps.Clear(ctx)
		if !errors.Is(err, deps.Errors.RefreshFailed) {
			err = fmt.Errorf("%w: %w", deps.Errors.RefreshFailed, err)
		}
		return RefreshResult{Failure: RefreshFailureExchange, Err: err}
	}
	return RefreshResult{AccessToken: token}
}
