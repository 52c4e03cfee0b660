package transport

import "context"

type (
	skipAuthKey struct{}
	retriedKey  struct{}
)

// WithSkipAuth marks requests made with ctx as unauthenticated: no bearer is
// attached and 401/403 responses are returned untouched.
func WithSkipAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthKey{}, true)
}

func SkipAuth(ctx context.Context) bool {
	skip, _ := ctx.Value(skipAuthKey{}).(bool)
	return skip
}

// withRetried marks a request that is being resent after a refresh.
func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

// Retried reports whether the request is already a post-refresh resend.
func Retried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey{}).(bool)
	return retried
}
