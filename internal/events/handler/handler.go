// Package handler exposes the event log for audit reads.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tessera/internal/events"
	"tessera/pkg/platform/httputil"
)

type Handler struct {
	store  events.Store
	logger *slog.Logger
}

func New(store events.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.handleList)
}

// RegisterAuthed is a no-op; the event log is read-only over HTTP.
func (h *Handler) RegisterAuthed(chi.Router) {}

type eventResponse struct {
	Timestamp  time.Time `json:"timestamp"`
	Actor      string    `json:"actor"`
	Subject    string    `json:"subject,omitempty"`
	Action     string    `json:"action"`
	Old        string    `json:"old,omitempty"`
	New        string    `json:"new,omitempty"`
	Amount     uint64    `json:"amount,omitempty"`
	FromGroup  uint64    `json:"from_group,omitempty"`
	ToGroup    uint64    `json:"to_group,omitempty"`
	Asset      string    `json:"asset,omitempty"`
	SnapshotID uint64    `json:"snapshot_id,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	list, err := h.store.List(r.Context(), subject)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := make([]eventResponse, 0, len(list))
	for _, e := range list {
		resp = append(resp, eventResponse{
			Timestamp:  e.Timestamp,
			Actor:      string(e.Actor),
			Subject:    string(e.Subject),
			Action:     string(e.Action),
			Old:        e.Old,
			New:        e.New,
			Amount:     e.Amount,
			FromGroup:  e.FromGroup,
			ToGroup:    e.ToGroup,
			Asset:      string(e.Asset),
			SnapshotID: uint64(e.SnapshotID),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": resp})
}
