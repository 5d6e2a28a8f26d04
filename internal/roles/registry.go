package roles

import (
	"context"
	"sync"

	"tessera/internal/events"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Publisher is the slice of the event pipeline the registry needs.
type Publisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Registry holds role membership. All reads and writes go through its lock;
// each operation is atomic and performs its own authorization check.
type Registry struct {
	mu        sync.RWMutex
	members   map[Role]map[domain.Address]struct{}
	publisher Publisher
}

// NewRegistry seeds the initial contract and reserve admins, mirroring ledger
// construction. Both must be non-zero.
func NewRegistry(contractAdmin, reserveAdmin domain.Address, publisher Publisher) (*Registry, error) {
	if contractAdmin.IsZero() || reserveAdmin.IsZero() {
		return nil, dErrors.New(dErrors.CodeZeroAddress, "admin address cannot be the zero address")
	}
	r := &Registry{
		members:   make(map[Role]map[domain.Address]struct{}),
		publisher: publisher,
	}
	for _, role := range All {
		r.members[role] = make(map[domain.Address]struct{})
	}
	r.members[ContractAdmin][contractAdmin] = struct{}{}
	r.members[ReserveAdmin][reserveAdmin] = struct{}{}
	return r, nil
}

// Grant adds account to role. Only a contract admin may grant.
func (r *Registry) Grant(ctx context.Context, actor domain.Address, role Role, account domain.Address) error {
	return r.change(ctx, actor, role, account, true)
}

// Revoke removes account from role. Only a contract admin may revoke, and the
// final contract admin cannot be removed.
func (r *Registry) Revoke(ctx context.Context, actor domain.Address, role Role, account domain.Address) error {
	return r.change(ctx, actor, role, account, false)
}

func (r *Registry) change(ctx context.Context, actor domain.Address, role Role, account domain.Address, granted bool) error {
	if !role.Valid() {
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown role %q", role)
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "cannot change role of the zero address")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[ContractAdmin][actor]; !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "does not have contract admin role")
	}
	if !granted && role == ContractAdmin && len(r.members[ContractAdmin]) == 1 {
		if _, sole := r.members[ContractAdmin][account]; sole {
			return dErrors.New(dErrors.CodeLastAdmin, "cannot revoke the last contract admin")
		}
	}
	status := "revoked"
	if granted {
		status = "granted"
	}
	// Emit before mutating so a failed append aborts with membership intact.
	if err := r.publisher.Emit(ctx, events.Event{
		Actor:   actor,
		Subject: account,
		Action:  events.ActionRoleChange,
		Old:     string(role),
		New:     status,
	}); err != nil {
		return err
	}
	if granted {
		r.members[role][account] = struct{}{}
	} else {
		delete(r.members[role], account)
	}
	return nil
}

// Has reports whether account holds role.
func (r *Registry) Has(role Role, account domain.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[role][account]
	return ok
}

// ContractAdminCount returns the size of the contract admin set.
func (r *Registry) ContractAdminCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[ContractAdmin])
}

// Require returns an unauthorized error unless account holds role.
func (r *Registry) Require(role Role, account domain.Address) error {
	if !r.Has(role, account) {
		return dErrors.Newf(dErrors.CodeUnauthorized, "does not have %s role", roleName(role))
	}
	return nil
}

// RequireEither returns an unauthorized error unless account holds at least
// one of the two roles. Used for freeze, which wallets and reserve admins
// share.
func (r *Registry) RequireEither(a, b Role, account domain.Address) error {
	if r.Has(a, account) || r.Has(b, account) {
		return nil
	}
	return dErrors.Newf(dErrors.CodeUnauthorized, "does not have %s or %s role", roleName(a), roleName(b))
}

func roleName(role Role) string {
	switch role {
	case ContractAdmin:
		return "contract admin"
	case TransferAdmin:
		return "transfer admin"
	case WalletsAdmin:
		return "wallets admin"
	case ReserveAdmin:
		return "reserve admin"
	}
	return string(role)
}
