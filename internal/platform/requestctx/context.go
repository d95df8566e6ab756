// Package requestctx carries per-request identity through contexts.
package requestctx

import "context"

type (
	adminContextKey     struct{}
	requestIDContextKey struct{}
)

// WithAdmin stores the authenticated administrator's username.
func WithAdmin(ctx context.Context, username string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, adminContextKey{}, username)
}

// AdminFromContext returns the administrator stored by WithAdmin.
func AdminFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(adminContextKey{}).(string)
	return value
}

// WithRequestID tags the context with a request correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDContextKey{}).(string)
	return value
}
