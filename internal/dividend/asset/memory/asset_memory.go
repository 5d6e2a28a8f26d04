// Package memory provides an in-process fungible asset implementing the
// dividend ledger's external-asset interface. Used in tests and local
// deployments; production wires adapters to real reward assets.
package memory

import (
	"context"
	"sync"

	"tessera/internal/dividend"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Asset is a minimal allowance-based fungible asset.
//
// FeeBps, when nonzero, burns that many basis points of every transfer
// before crediting the recipient. It exists to exercise the dividend
// ledger's received-amount accounting against fee-on-transfer assets.
type Asset struct {
	mu         sync.Mutex
	balances   map[domain.Address]uint64
	allowances map[domain.Address]map[domain.Address]uint64

	FeeBps uint64
}

func NewAsset() *Asset {
	return &Asset{
		balances:   make(map[domain.Address]uint64),
		allowances: make(map[domain.Address]map[domain.Address]uint64),
	}
}

// Mint credits units out of thin air. Test hook only.
func (a *Asset) Mint(account domain.Address, amount uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[account] += amount
}

// Approve lets spender move up to amount of actor's balance.
func (a *Asset) Approve(actor, spender domain.Address, amount uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.allowances[actor] == nil {
		a.allowances[actor] = make(map[domain.Address]uint64)
	}
	a.allowances[actor][spender] = amount
}

func (a *Asset) BalanceOf(_ context.Context, account domain.Address) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[account], nil
}

func (a *Asset) Transfer(_ context.Context, actor, to domain.Address, amount uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.move(actor, to, amount)
}

func (a *Asset) TransferFrom(_ context.Context, actor, from, to domain.Address, amount uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	allowed := a.allowances[from][actor]
	if allowed < amount {
		return dErrors.Newf(dErrors.CodeInsufficientAllowance, "allowance %d is less than %d", allowed, amount)
	}
	if err := a.move(from, to, amount); err != nil {
		return err
	}
	a.allowances[from][actor] = allowed - amount
	return nil
}

func (a *Asset) move(from, to domain.Address, amount uint64) error {
	if a.balances[from] < amount {
		return dErrors.Newf(dErrors.CodeInsufficientBalance, "balance %d is less than %d", a.balances[from], amount)
	}
	fee := amount * a.FeeBps / 10000
	a.balances[from] -= amount
	a.balances[to] += amount - fee
	return nil
}

// Resolver maps asset identifiers to registered assets.
type Resolver struct {
	mu     sync.RWMutex
	assets map[domain.Address]dividend.ExternalAsset
}

func NewResolver() *Resolver {
	return &Resolver{assets: make(map[domain.Address]dividend.ExternalAsset)}
}

// Register binds an asset identifier to an implementation.
func (r *Resolver) Register(id domain.Address, asset dividend.ExternalAsset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[id] = asset
}

func (r *Resolver) Resolve(id domain.Address) (dividend.ExternalAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	asset, ok := r.assets[id]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "unknown external asset %s", id)
	}
	return asset, nil
}
