// Package handler wires the balance ledger endpoints to the ledger service.
// Handlers stay thin: decode, delegate, encode.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tessera/internal/ledger"
	"tessera/internal/restriction"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/httputil"
	"tessera/pkg/requestcontext"
)

// Query is the cached historical-read service.
type Query interface {
	BalanceOfAt(ctx context.Context, account domain.Address, id domain.SnapshotID) (uint64, error)
	TotalSupplyAt(ctx context.Context, id domain.SnapshotID) (uint64, error)
}

// Handler serves the token surface of the ledger.
type Handler struct {
	service *ledger.Service
	query   Query
	admins  AdminCounter
	logger  *slog.Logger
}

func New(service *ledger.Service, query Query, logger *slog.Logger) *Handler {
	return &Handler{service: service, query: query, logger: logger}
}

// Register mounts the read-only endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/token", h.handleToken)
	r.Get("/accounts/{address}", h.handleAccount)
	r.Get("/accounts/{address}/allowances/{spender}", h.handleAllowance)
	r.Get("/accounts/{address}/balance-at/{id}", h.handleBalanceAt)
	r.Get("/supply-at/{id}", h.handleSupplyAt)
	r.Get("/snapshots/current", h.handleCurrentSnapshot)
	r.Get("/restrictions/detect", h.handleDetect)
	r.Get("/restrictions/messages/{code}", h.handleMessage)
}

// RegisterAuthed mounts the mutating endpoints; the router wraps them in the
// auth middleware that resolves the acting address.
func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Post("/transfers", h.handleTransfer)
	r.Post("/transfers/from", h.handleTransferFrom)
	r.Post("/allowances", h.handleApprove)
	r.Post("/allowances/increase", h.handleIncreaseAllowance)
	r.Post("/allowances/decrease", h.handleDecreaseAllowance)
	r.Post("/mint", h.handleMint)
	r.Post("/burn", h.handleBurn)
	r.Post("/pause", h.handlePause)
	r.Post("/snapshots", h.handleSnapshot)
}

type tokenResponse struct {
	Symbol         string `json:"symbol"`
	Name           string `json:"name"`
	Decimals       uint8  `json:"decimals"`
	TotalSupply    uint64 `json:"total_supply"`
	MaxTotalSupply uint64 `json:"max_total_supply"`
	Paused         bool   `json:"paused"`
	SnapshotID     uint64 `json:"current_snapshot_id"`
	AdminCount     int    `json:"contract_admin_count"`
}

// AdminCounter lets the handler report the contract admin count without
// depending on the full registry.
type AdminCounter interface {
	ContractAdminCount() int
}

// WithAdminCounter attaches the role registry's counter.
func (h *Handler) WithAdminCounter(c AdminCounter) *Handler {
	h.admins = c
	return h
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	meta := h.service.Metadata()
	resp := tokenResponse{
		Symbol:         meta.Symbol,
		Name:           meta.Name,
		Decimals:       meta.Decimals,
		TotalSupply:    h.service.TotalSupply(),
		MaxTotalSupply: h.service.MaxTotalSupply(),
		Paused:         h.service.IsPaused(),
		SnapshotID:     uint64(h.service.GetCurrentSnapshotID()),
	}
	if h.admins != nil {
		resp.AdminCount = h.admins.ContractAdminCount()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type accountResponse struct {
	Address  string `json:"address"`
	Balance  uint64 `json:"balance"`
	Locked   uint64 `json:"locked_balance"`
	Unlocked uint64 `json:"unlocked_balance"`
}

func (h *Handler) handleAccount(w http.ResponseWriter, r *http.Request) {
	address := domain.Address(chi.URLParam(r, "address"))
	httputil.WriteJSON(w, http.StatusOK, accountResponse{
		Address:  string(address),
		Balance:  h.service.BalanceOf(address),
		Locked:   h.service.GetCurrentlyLockedBalance(address),
		Unlocked: h.service.GetCurrentlyUnlockedBalance(address),
	})
}

func (h *Handler) handleAllowance(w http.ResponseWriter, r *http.Request) {
	owner := domain.Address(chi.URLParam(r, "address"))
	spender := domain.Address(chi.URLParam(r, "spender"))
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{
		"allowance": h.service.Allowance(owner, spender),
	})
}

func (h *Handler) handleBalanceAt(w http.ResponseWriter, r *http.Request) {
	address := domain.Address(chi.URLParam(r, "address"))
	id, err := snapshotID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	balance, err := h.query.BalanceOfAt(r.Context(), address, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func (h *Handler) handleSupplyAt(w http.ResponseWriter, r *http.Request) {
	id, err := snapshotID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	supply, err := h.query.TotalSupplyAt(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"total_supply": supply})
}

func (h *Handler) handleCurrentSnapshot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{
		"snapshot_id": uint64(h.service.GetCurrentSnapshotID()),
	})
}

func (h *Handler) handleDetect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := strconv.ParseUint(q.Get("amount"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "amount must be a non-negative integer"))
		return
	}
	code := h.service.DetectTransferRestriction(
		domain.Address(q.Get("from")),
		domain.Address(q.Get("to")),
		amount,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"code":    uint8(code),
		"message": h.service.MessageForTransferRestriction(code),
	})
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.ParseUint(chi.URLParam(r, "code"), 10, 8)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "code must be an integer between 0 and 255"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": h.service.MessageForTransferRestriction(restriction.Code(code)),
	})
}

type transferRequest struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[transferRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	if err := h.service.Transfer(r.Context(), actor, domain.Address(req.To), req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleTransferFrom(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[transferRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	err := h.service.TransferFrom(r.Context(), actor, domain.Address(req.From), domain.Address(req.To), req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type approveRequest struct {
	Spender string `json:"spender"`
	Amount  uint64 `json:"amount"`
	Safe    bool   `json:"safe,omitempty"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[approveRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	var err error
	if req.Safe {
		err = h.service.SafeApprove(r.Context(), actor, domain.Address(req.Spender), req.Amount)
	} else {
		err = h.service.Approve(r.Context(), actor, domain.Address(req.Spender), req.Amount)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleIncreaseAllowance(w http.ResponseWriter, r *http.Request) {
	h.adjustAllowance(w, r, h.service.IncreaseAllowance)
}

func (h *Handler) handleDecreaseAllowance(w http.ResponseWriter, r *http.Request) {
	h.adjustAllowance(w, r, h.service.DecreaseAllowance)
}

func (h *Handler) adjustAllowance(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.Address, domain.Address, uint64) error) {
	req, ok := httputil.Decode[approveRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	if err := op(r.Context(), actor, domain.Address(req.Spender), req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type supplyRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[supplyRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	if err := h.service.Mint(r.Context(), actor, domain.Address(req.Account), req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleBurn(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[supplyRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	if err := h.service.Burn(r.Context(), actor, domain.Address(req.Account), req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[pauseRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	var err error
	if req.Paused {
		err = h.service.Pause(r.Context(), actor)
	} else {
		err = h.service.Unpause(r.Context(), actor)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	actor := requestcontext.Actor(r.Context())
	id, err := h.service.Snapshot(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]uint64{"snapshot_id": uint64(id)})
}

func snapshotID(raw string) (domain.SnapshotID, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "snapshot id must be a non-negative integer")
	}
	return domain.SnapshotID(id), nil
}
