// Package handler exposes inspection and upgrade of the installed transfer
// policy. Replacement policies must be compiled in; the endpoint selects one
// from the registered catalog by name.
package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tessera/internal/restriction"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/httputil"
	"tessera/pkg/requestcontext"
)

type Handler struct {
	holder  *restriction.Holder
	catalog map[string]restriction.Policy
	logger  *slog.Logger
}

func New(holder *restriction.Holder, catalog map[string]restriction.Policy, logger *slog.Logger) *Handler {
	return &Handler{holder: holder, catalog: catalog, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/policy", h.handleCurrent)
}

func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Post("/policy/upgrade", h.handleUpgrade)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"policy": fmt.Sprintf("%T", h.holder.Current()),
	})
}

type upgradeRequest struct {
	Policy string `json:"policy"`
}

func (h *Handler) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[upgradeRequest](w, r)
	if !ok {
		return
	}
	next, ok := h.catalog[req.Policy]
	if !ok {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unknown policy %q", req.Policy))
		return
	}
	actor := requestcontext.Actor(r.Context())
	if err := h.holder.Upgrade(r.Context(), actor, next); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "transfer policy upgraded", "policy", req.Policy, "actor", actor)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
