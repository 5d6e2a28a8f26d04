package testutil

import (
	"net/http"

	"tessera/pkg/domain"
	"tessera/pkg/requestcontext"
)

// WithActor stores an acting address on the request context, simulating what
// the auth middleware does for authenticated requests.
func WithActor(req *http.Request, actor domain.Address) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithRequestID stores a correlation id on the request context.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}
