package restriction

import (
	"context"
	"fmt"
	"sync"

	"tessera/internal/events"
	"tessera/internal/roles"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Publisher is the slice of the event pipeline the holder needs.
type Publisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Holder owns the swappable reference to the installed policy object.
// Upgrading is transfer-admin gated and a nil replacement is rejected, so
// Current never returns nil.
type Holder struct {
	mu        sync.RWMutex
	policy    Policy
	registry  *roles.Registry
	publisher Publisher
}

func NewHolder(initial Policy, registry *roles.Registry, publisher Publisher) (*Holder, error) {
	if initial == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "transfer policy cannot be nil")
	}
	return &Holder{policy: initial, registry: registry, publisher: publisher}, nil
}

// Current returns the installed policy.
func (h *Holder) Current() Policy {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.policy
}

// Detect delegates to the installed policy.
func (h *Holder) Detect(in Input) Code {
	return h.Current().Detect(in)
}

// MessageFor delegates to the installed policy so upgraded policies can
// define messages for issuer-specific codes.
func (h *Holder) MessageFor(code Code) string {
	return h.Current().MessageFor(code)
}

// Upgrade replaces the policy object. Transfer admin only; nil is rejected.
func (h *Holder) Upgrade(ctx context.Context, actor domain.Address, next Policy) error {
	if err := h.registry.Require(roles.TransferAdmin, actor); err != nil {
		return err
	}
	if next == nil {
		return dErrors.New(dErrors.CodeBadRequest, "transfer policy cannot be nil")
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	// Emit before swapping so a failed append leaves the old policy installed.
	if err := h.publisher.Emit(ctx, events.Event{
		Actor:  actor,
		Action: events.ActionUpgrade,
		Old:    fmt.Sprintf("%T", h.policy),
		New:    fmt.Sprintf("%T", next),
	}); err != nil {
		return err
	}
	h.policy = next
	return nil
}
