package clients

import "context"

type authKey struct{}

// WithAuthorization attaches the caller's Authorization header value to ctx.
// It is forwarded verbatim on every backend call; tokens are never minted
// or refreshed here.
func WithAuthorization(ctx context.Context, authorization string) context.Context {
	if authorization == "" {
		return ctx
	}
	return context.WithValue(ctx, authKey{}, authorization)
}

// AuthorizationFromContext returns the forwarded Authorization value, if any
func AuthorizationFromContext(ctx context.Context) string {
	v, _ := ctx.Value(authKey{}).(string)
	return v
}
