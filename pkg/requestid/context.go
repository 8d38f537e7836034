package requestid

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

// WithContext stores requestID in ctx.
func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// FromContext returns the request id stored in ctx, or an empty string.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(contextKey{}).(string)
	return requestID
}

// Ensure returns ctx unchanged when it already carries a valid id, otherwise a
// derived context holding a new one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); isValidRequestID(id) {
		return ctx, id
	}
	id := New()
	return WithContext(ctx, id), id
}

// New generates a request id.
func New() string {
	return uuid.NewString()
}
