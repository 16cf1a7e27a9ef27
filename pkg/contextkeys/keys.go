// Package contextkeys provides centralized context key definitions.
//
// All context keys shared across packages are defined here so that the
// middleware and handler packages can exchange request-scoped values
// without importing each other.
package contextkeys

import (
	"context"

	"github.com/moviecrew/moviecrew/pkg/auth"
)

// Key is the type used for all context keys in this module.
type Key string

const (
	// PrincipalKey is the context key for the authenticated principal.
	PrincipalKey Key = "principal"
	// RequestIDKey is the context key for the request ID.
	RequestIDKey Key = "request_id"
)

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFrom extracts the authenticated principal from the context.
// Returns nil for unauthenticated requests.
func PrincipalFrom(ctx context.Context) *auth.Principal {
	p, ok := ctx.Value(PrincipalKey).(*auth.Principal)
	if !ok {
		return nil
	}
	return p
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestIDFrom extracts the request ID from the context, or "".
func RequestIDFrom(ctx context.Context) string {
	id, ok := ctx.Value(RequestIDKey).(string)
	if !ok {
		return ""
	}
	return id
}
