// Package httpapi composes the per-context handlers into the service router.
// Transport concerns only; business logic stays in the service packages.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tessera/internal/platform/metrics"
	"tessera/internal/platform/middleware"
)

// Registrar is implemented by every context handler: read-only routes via
// Register, actor-gated routes via RegisterAuthed.
type Registrar interface {
	Register(r chi.Router)
	RegisterAuthed(r chi.Router)
}

// NewRouter mounts all context handlers plus the operational endpoints.
// Mutating routes sit behind bearer auth; reads are open.
func NewRouter(validator *middleware.Validator, logger *slog.Logger, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Trace)
	r.Use(metrics.NewHTTP().Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		for _, h := range handlers {
			h.Register(v1)
		}
		v1.Group(func(authed chi.Router) {
			authed.Use(middleware.RequireAuth(validator, logger))
			for _, h := range handlers {
				h.RegisterAuthed(authed)
			}
		})
	})

	return r
}
