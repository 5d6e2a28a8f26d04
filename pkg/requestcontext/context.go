// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services and handlers read
// them without importing net/http.
package requestcontext

import (
	"context"

	"tessera/pkg/domain"
)

type (
	actorKey     struct{}
	requestIDKey struct{}
)

// WithActor stores the authenticated acting address.
func WithActor(ctx context.Context, actor domain.Address) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor returns the authenticated acting address, or the zero address when
// the request is unauthenticated.
func Actor(ctx context.Context) domain.Address {
	if a, ok := ctx.Value(actorKey{}).(domain.Address); ok {
		return a
	}
	return domain.ZeroAddress
}

// WithRequestID stores the correlation id for the request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the correlation id, or "" when none was set.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
