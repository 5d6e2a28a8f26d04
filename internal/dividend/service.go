package dividend

import (
	"context"
	"sync"

	"github.com/holiman/uint256"

	"tessera/internal/dividend/metrics"
	"tessera/internal/events"
	"tessera/internal/roles"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Ledger is the read-only slice of the balance ledger the dividend service
// needs. It holds references into the snapshot history, never copies.
type Ledger interface {
	BalanceOfAt(account domain.Address, id domain.SnapshotID) (uint64, error)
	TotalSupplyAt(id domain.SnapshotID) (uint64, error)
	GetCurrentSnapshotID() domain.SnapshotID
}

// Publisher is the slice of the event pipeline this service needs.
type Publisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service manages dividend pools. External-asset calls are an untrusted
// boundary: funding follows check, transfer, re-verify received amount,
// update state, so a reentrant callback can never observe inconsistent pool
// state, and fee-on-transfer assets are credited at the amount actually
// received.
type Service struct {
	mu    sync.Mutex
	pools map[PoolKey]*Pool

	// account is the custody address this service controls on external
	// assets; funded amounts sit there until claimed or swept.
	account   domain.Address
	ledger    Ledger
	registry  *roles.Registry
	resolver  AssetResolver
	publisher Publisher
	metrics   *metrics.Metrics
}

// Config wires the dividend service.
type Config struct {
	Account   domain.Address
	Ledger    Ledger
	Registry  *roles.Registry
	Resolver  AssetResolver
	Publisher Publisher
	Metrics   *metrics.Metrics
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Account.IsZero() {
		return nil, dErrors.New(dErrors.CodeZeroAddress, "dividend custody account cannot be the zero address")
	}
	if cfg.Ledger == nil || cfg.Registry == nil || cfg.Resolver == nil || cfg.Publisher == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "dividend service requires ledger, registry, resolver, and publisher")
	}
	return &Service{
		pools:     make(map[PoolKey]*Pool),
		account:   cfg.Account,
		ledger:    cfg.Ledger,
		registry:  cfg.Registry,
		resolver:  cfg.Resolver,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
	}, nil
}

// Fund pulls amount of the external asset from the caller into the pool for
// the given snapshot. The pool is credited with the balance delta actually
// observed, not the nominal amount.
func (s *Service) Fund(ctx context.Context, actor, asset domain.Address, amount uint64, id domain.SnapshotID) (uint64, error) {
	if actor.IsZero() || asset.IsZero() {
		return 0, dErrors.New(dErrors.CodeZeroAddress, "funder and asset cannot be the zero address")
	}
	if amount == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "funding amount must be positive")
	}
	if id == 0 || id > s.ledger.GetCurrentSnapshotID() {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "snapshot %d does not exist", id)
	}
	ext, err := s.resolver.Resolve(asset)
	if err != nil {
		return 0, err
	}

	// Check, transfer, re-verify, then update state. The external call runs
	// outside our lock; pool state is only touched after the asset confirms
	// what arrived.
	before, err := ext.BalanceOf(ctx, s.account)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "read custody balance", err)
	}
	if err := ext.TransferFrom(ctx, s.account, actor, s.account, amount); err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInsufficientAllowance, "pull funding from caller", err)
	}
	after, err := ext.BalanceOf(ctx, s.account)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "re-read custody balance", err)
	}
	received := after - before
	if after < before || received == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "external asset delivered nothing")
	}

	s.mu.Lock()
	key := PoolKey{Asset: asset, SnapshotID: id}
	pool := s.pools[key]
	if pool == nil {
		pool = newPool()
		s.pools[key] = pool
	}
	pool.TotalFunded += received
	pool.Remaining += received
	s.mu.Unlock()

	s.metrics.AddFunded(received)
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:      actor,
		Action:     events.ActionFunded,
		Amount:     received,
		Asset:      asset,
		SnapshotID: id,
	}); err != nil {
		return received, err
	}
	return received, nil
}

// Claim pays the caller its pro-rata share of the pool. Each holder may
// claim once per pool.
func (s *Service) Claim(ctx context.Context, actor, asset domain.Address, id domain.SnapshotID) (uint64, error) {
	if actor.IsZero() {
		return 0, dErrors.New(dErrors.CodeZeroAddress, "claimer cannot be the zero address")
	}
	share, err := s.reserveClaim(ctx, actor, asset, id)
	if err != nil {
		s.metrics.IncClaimError(string(dErrors.CodeOf(err)))
		return 0, err
	}

	ext, err := s.resolver.Resolve(asset)
	if err != nil {
		s.rollbackClaim(actor, asset, id, share)
		return 0, err
	}
	if err := ext.Transfer(ctx, s.account, actor, share); err != nil {
		s.rollbackClaim(actor, asset, id, share)
		return 0, dErrors.Wrap(dErrors.CodeInternal, "pay out claim", err)
	}

	s.metrics.AddClaimed(share)
	return share, s.publisher.Emit(ctx, events.Event{
		Actor:      actor,
		Action:     events.ActionClaimed,
		Amount:     share,
		Asset:      asset,
		SnapshotID: id,
	})
}

// reserveClaim validates the claim and marks it taken under the lock, so a
// reentrant call from the asset during payout sees the claim as already
// spent.
func (s *Service) reserveClaim(ctx context.Context, actor, asset domain.Address, id domain.SnapshotID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.pools[PoolKey{Asset: asset, SnapshotID: id}]
	if pool == nil {
		return 0, dErrors.Newf(dErrors.CodeNotFound, "no dividend pool for asset %s at snapshot %d", asset, id)
	}
	if pool.Claimed(actor) {
		return 0, dErrors.New(dErrors.CodeAlreadyClaimed, "dividend already claimed")
	}

	share, err := s.shareOf(actor, asset, id, pool.TotalFunded)
	if err != nil {
		return 0, err
	}
	if share == 0 {
		return 0, dErrors.New(dErrors.CodeNothingToClaim, "computed share is zero")
	}
	if share > pool.Remaining {
		return 0, dErrors.Newf(dErrors.CodeInsufficientBalance, "pool has %d remaining, share is %d", pool.Remaining, share)
	}

	pool.claimed[actor] = struct{}{}
	pool.Remaining -= share
	return share, nil
}

func (s *Service) rollbackClaim(actor, asset domain.Address, id domain.SnapshotID, share uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pool := s.pools[PoolKey{Asset: asset, SnapshotID: id}]; pool != nil {
		delete(pool.claimed, actor)
		pool.Remaining += share
	}
}

// shareOf computes floor(balance * Precision * funded / supply / Precision)
// in 256-bit arithmetic so the intermediate product cannot overflow.
func (s *Service) shareOf(account, asset domain.Address, id domain.SnapshotID, funded uint64) (uint64, error) {
	balance, err := s.ledger.BalanceOfAt(account, id)
	if err != nil {
		return 0, err
	}
	supply, err := s.ledger.TotalSupplyAt(id)
	if err != nil {
		return 0, err
	}
	if supply == 0 || balance == 0 {
		return 0, nil
	}
	precision := uint256.NewInt(Precision)
	share := uint256.NewInt(balance)
	share.Mul(share, precision)
	share.Mul(share, uint256.NewInt(funded))
	share.Div(share, uint256.NewInt(supply))
	share.Div(share, precision)
	return share.Uint64(), nil
}

// WithdrawRemains sweeps whatever is currently unclaimed in the pool to the
// calling contract admin. There is no claim-window cutoff: sweeping can
// happen before all holders have claimed, at admin discretion.
func (s *Service) WithdrawRemains(ctx context.Context, actor, asset domain.Address, id domain.SnapshotID) (uint64, error) {
	if err := s.registry.Require(roles.ContractAdmin, actor); err != nil {
		return 0, err
	}

	s.mu.Lock()
	pool := s.pools[PoolKey{Asset: asset, SnapshotID: id}]
	if pool == nil {
		s.mu.Unlock()
		return 0, dErrors.Newf(dErrors.CodeNotFound, "no dividend pool for asset %s at snapshot %d", asset, id)
	}
	amount := pool.Remaining
	pool.Remaining = 0
	s.mu.Unlock()

	if amount == 0 {
		return 0, nil
	}
	ext, err := s.resolver.Resolve(asset)
	if err != nil {
		s.rollbackSweep(asset, id, amount)
		return 0, err
	}
	if err := ext.Transfer(ctx, s.account, actor, amount); err != nil {
		s.rollbackSweep(asset, id, amount)
		return 0, dErrors.Wrap(dErrors.CodeInternal, "sweep remains", err)
	}

	s.metrics.AddSwept(amount)
	return amount, s.publisher.Emit(ctx, events.Event{
		Actor:      actor,
		Action:     events.ActionWithdrawn,
		Amount:     amount,
		Asset:      asset,
		SnapshotID: id,
	})
}

func (s *Service) rollbackSweep(asset domain.Address, id domain.SnapshotID, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pool := s.pools[PoolKey{Asset: asset, SnapshotID: id}]; pool != nil {
		pool.Remaining += amount
	}
}

// FundsAt returns the total ever funded into the pool.
func (s *Service) FundsAt(asset domain.Address, id domain.SnapshotID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pool := s.pools[PoolKey{Asset: asset, SnapshotID: id}]; pool != nil {
		return pool.TotalFunded
	}
	return 0
}

// TokensAt returns what is currently left unclaimed in the pool.
func (s *Service) TokensAt(asset domain.Address, id domain.SnapshotID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pool := s.pools[PoolKey{Asset: asset, SnapshotID: id}]; pool != nil {
		return pool.Remaining
	}
	return 0
}

// HasClaimed reports whether the account already claimed from the pool.
func (s *Service) HasClaimed(account, asset domain.Address, id domain.SnapshotID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pool := s.pools[PoolKey{Asset: asset, SnapshotID: id}]; pool != nil {
		return pool.Claimed(account)
	}
	return false
}
