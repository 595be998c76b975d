package labauth

import (
	"context"

	"github.com/labkm/labauth/transport"
)

// WithRequestID attaches a caller-chosen request id to ctx. The next request
// sends it in X-Request-ID and every notice about that request carries it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return transport.WithRequestID(ctx, id)
}
