// Package handler exposes pro-rata dividend funding, claiming and sweeps.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tessera/internal/dividend"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/httputil"
	"tessera/pkg/requestcontext"
)

type Handler struct {
	service *dividend.Service
	logger  *slog.Logger
}

func New(service *dividend.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read-only endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/dividends/{asset}/{id}", h.handlePool)
	r.Get("/dividends/{asset}/{id}/claimed/{address}", h.handleHasClaimed)
}

// RegisterAuthed mounts the funding, claim and sweep endpoints.
func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Post("/dividends/fund", h.handleFund)
	r.Post("/dividends/claim", h.handleClaim)
	r.Post("/dividends/withdraw", h.handleWithdraw)
}

func (h *Handler) handlePool(w http.ResponseWriter, r *http.Request) {
	asset := domain.Address(chi.URLParam(r, "asset"))
	id, err := snapshotID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{
		"total_funded": h.service.FundsAt(asset, id),
		"remaining":    h.service.TokensAt(asset, id),
	})
}

func (h *Handler) handleHasClaimed(w http.ResponseWriter, r *http.Request) {
	asset := domain.Address(chi.URLParam(r, "asset"))
	id, err := snapshotID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	address := domain.Address(chi.URLParam(r, "address"))
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{
		"claimed": h.service.HasClaimed(address, asset, id),
	})
}

type fundRequest struct {
	Asset      string `json:"asset"`
	Amount     uint64 `json:"amount"`
	SnapshotID uint64 `json:"snapshot_id"`
}

func (h *Handler) handleFund(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[fundRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	received, err := h.service.Fund(r.Context(), actor, domain.Address(req.Asset), req.Amount, domain.SnapshotID(req.SnapshotID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"received": received})
}

type poolRequest struct {
	Asset      string `json:"asset"`
	SnapshotID uint64 `json:"snapshot_id"`
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[poolRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	amount, err := h.service.Claim(r.Context(), actor, domain.Address(req.Asset), domain.SnapshotID(req.SnapshotID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"amount": amount})
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[poolRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	amount, err := h.service.WithdrawRemains(r.Context(), actor, domain.Address(req.Asset), domain.SnapshotID(req.SnapshotID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"withdrawn": amount})
}

func snapshotID(raw string) (domain.SnapshotID, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "snapshot id must be a non-negative integer")
	}
	return domain.SnapshotID(id), nil
}
