package httpx

import "context"

// Caller identifies who invoked an automation endpoint.
type Caller struct {
	// Method is "token" or "oidc".
	Method  string
	Subject string
}

type callerKey struct{}

// SetCallerInContext returns a child context that carries the caller.
func SetCallerInContext(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the authenticated caller and whether one was set.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
