package transport

import "context"

type requestIDContextKey struct{}

// WithRequestID makes the next request issued with ctx carry id instead of
// a generated one. Retries reuse it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
