// Package handler exposes role membership management.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tessera/internal/roles"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/httputil"
	"tessera/pkg/requestcontext"
)

type Handler struct {
	registry *roles.Registry
	logger   *slog.Logger
}

func New(registry *roles.Registry, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// Register mounts the read-only endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/roles/{role}/{address}", h.handleHas)
	r.Get("/roles/contract_admin/count", h.handleAdminCount)
}

// RegisterAuthed mounts the grant/revoke endpoints.
func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Post("/roles/{role}/grant", h.handleGrant)
	r.Post("/roles/{role}/revoke", h.handleRevoke)
}

func (h *Handler) handleHas(w http.ResponseWriter, r *http.Request) {
	role := roles.Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown role"))
		return
	}
	address := domain.Address(chi.URLParam(r, "address"))
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{
		"has_role": h.registry.Has(role, address),
	})
}

func (h *Handler) handleAdminCount(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"count": h.registry.ContractAdminCount(),
	})
}

type memberRequest struct {
	Account string `json:"account"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.registry.Grant)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.registry.Revoke)
}

func (h *Handler) change(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor domain.Address, role roles.Role, account domain.Address) error) {
	role := roles.Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown role"))
		return
	}
	req, ok := httputil.Decode[memberRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	if err := op(r.Context(), actor, role, domain.Address(req.Account)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
