// Package handler exposes the wallet permission surface: per-address
// compliance attributes, time-locks and the group approval matrix.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tessera/internal/permission"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/httputil"
	"tessera/pkg/requestcontext"
)

type Handler struct {
	service *permission.Service
	logger  *slog.Logger
}

func New(service *permission.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read-only endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/accounts/{address}/permissions", h.handleGet)
	r.Get("/accounts/{address}/locks", h.handleListLocks)
	r.Get("/accounts/{address}/locks/{index}", h.handleLockAt)
	r.Get("/groups/allow", h.handleGroupApproval)
}

// RegisterAuthed mounts the admin-gated endpoints.
func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Post("/accounts/{address}/max-balance", h.handleSetMaxBalance)
	r.Post("/accounts/{address}/group", h.handleSetGroup)
	r.Post("/accounts/{address}/freeze", h.handleFreeze)
	r.Post("/accounts/{address}/permissions", h.handleSetPermissions)
	r.Post("/accounts/{address}/locks", h.handleAddLock)
	r.Delete("/accounts/{address}/locks/timestamp/{ts}", h.handleRemoveLockByTimestamp)
	r.Delete("/accounts/{address}/locks/index/{index}", h.handleRemoveLockByIndex)
	r.Post("/groups/allow", h.handleAllowGroupTransfer)
}

type permissionResponse struct {
	Address    string         `json:"address"`
	Group      uint64         `json:"transfer_group"`
	MaxBalance uint64         `json:"max_balance"`
	Frozen     bool           `json:"frozen"`
	Locks      []lockResponse `json:"locks"`
}

type lockResponse struct {
	Until  int64  `json:"until"`
	Amount uint64 `json:"amount"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	address := domain.Address(chi.URLParam(r, "address"))
	perm := h.service.Get(address)
	resp := permissionResponse{
		Address:    string(address),
		Group:      uint64(perm.Group),
		MaxBalance: perm.MaxBalance,
		Frozen:     perm.Frozen,
		Locks:      make([]lockResponse, 0, len(perm.Locks)),
	}
	for _, l := range perm.Locks {
		resp.Locks = append(resp.Locks, lockResponse{Until: l.Until.Unix(), Amount: l.Amount})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListLocks(w http.ResponseWriter, r *http.Request) {
	address := domain.Address(chi.URLParam(r, "address"))
	perm := h.service.Get(address)
	locks := make([]lockResponse, 0, len(perm.Locks))
	for _, l := range perm.Locks {
		locks = append(locks, lockResponse{Until: l.Until.Unix(), Amount: l.Amount})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"count": h.service.GetTotalLocksUntil(address),
		"locks": locks,
	})
}

func (h *Handler) handleLockAt(w http.ResponseWriter, r *http.Request) {
	address := domain.Address(chi.URLParam(r, "address"))
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "index must be a non-negative integer"))
		return
	}
	lock, err := h.service.GetLockUntilIndexLookup(address, index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lockResponse{Until: lock.Until.Unix(), Amount: lock.Amount})
}

func (h *Handler) handleGroupApproval(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err1 := strconv.ParseUint(q.Get("from"), 10, 64)
	to, err2 := strconv.ParseUint(q.Get("to"), 10, 64)
	if err1 != nil || err2 != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "from and to must be group numbers"))
		return
	}
	at, ok := h.service.GetAllowGroupTransferTime(domain.Group(from), domain.Group(to))
	resp := map[string]any{"approved": ok}
	if ok {
		resp["allowed_after"] = at.Unix()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type maxBalanceRequest struct {
	MaxBalance uint64 `json:"max_balance"`
}

func (h *Handler) handleSetMaxBalance(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[maxBalanceRequest](w, r)
	if !ok {
		return
	}
	address := domain.Address(chi.URLParam(r, "address"))
	actor := requestcontext.Actor(r.Context())
	if err := h.service.SetMaxBalance(r.Context(), actor, address, req.MaxBalance); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type groupRequest struct {
	Group uint64 `json:"transfer_group"`
}

func (h *Handler) handleSetGroup(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[groupRequest](w, r)
	if !ok {
		return
	}
	address := domain.Address(chi.URLParam(r, "address"))
	actor := requestcontext.Actor(r.Context())
	if err := h.service.SetTransferGroup(r.Context(), actor, address, domain.Group(req.Group)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type freezeRequest struct {
	Frozen bool `json:"frozen"`
}

func (h *Handler) handleFreeze(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[freezeRequest](w, r)
	if !ok {
		return
	}
	address := domain.Address(chi.URLParam(r, "address"))
	actor := requestcontext.Actor(r.Context())
	if err := h.service.Freeze(r.Context(), actor, address, req.Frozen); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type setPermissionsRequest struct {
	Group      uint64 `json:"transfer_group"`
	LockUntil  int64  `json:"lock_until"`
	LockAmount uint64 `json:"lock_amount"`
	MaxBalance uint64 `json:"max_balance"`
	Frozen     bool   `json:"frozen"`
}

func (h *Handler) handleSetPermissions(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[setPermissionsRequest](w, r)
	if !ok {
		return
	}
	address := domain.Address(chi.URLParam(r, "address"))
	actor := requestcontext.Actor(r.Context())
	update := permission.PermissionUpdate{
		Group:      domain.Group(req.Group),
		LockUntil:  time.Unix(req.LockUntil, 0).UTC(),
		LockAmount: req.LockAmount,
		MaxBalance: req.MaxBalance,
		Frozen:     req.Frozen,
	}
	if err := h.service.SetAddressPermissions(r.Context(), actor, address, update); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type addLockRequest struct {
	Until  int64  `json:"until"`
	Amount uint64 `json:"amount"`
}

func (h *Handler) handleAddLock(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[addLockRequest](w, r)
	if !ok {
		return
	}
	address := domain.Address(chi.URLParam(r, "address"))
	actor := requestcontext.Actor(r.Context())
	until := time.Unix(req.Until, 0).UTC()
	if err := h.service.AddLockUntil(r.Context(), actor, address, until, req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleRemoveLockByTimestamp(w http.ResponseWriter, r *http.Request) {
	ts, err := strconv.ParseInt(chi.URLParam(r, "ts"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "timestamp must be a unix timestamp"))
		return
	}
	address := domain.Address(chi.URLParam(r, "address"))
	actor := requestcontext.Actor(r.Context())
	if err := h.service.RemoveLockUntilTimestampLookup(r.Context(), actor, address, time.Unix(ts, 0).UTC()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleRemoveLockByIndex(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "index must be a non-negative integer"))
		return
	}
	address := domain.Address(chi.URLParam(r, "address"))
	actor := requestcontext.Actor(r.Context())
	if err := h.service.RemoveLockUntilIndexLookup(r.Context(), actor, address, index); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type allowGroupRequest struct {
	FromGroup uint64 `json:"from_group"`
	ToGroup   uint64 `json:"to_group"`
	After     int64  `json:"allowed_after"`
}

func (h *Handler) handleAllowGroupTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[allowGroupRequest](w, r)
	if !ok {
		return
	}
	actor := requestcontext.Actor(r.Context())
	var after time.Time
	if req.After != 0 {
		after = time.Unix(req.After, 0).UTC()
	}
	err := h.service.SetAllowGroupTransfer(r.Context(), actor, domain.Group(req.FromGroup), domain.Group(req.ToGroup), after)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
