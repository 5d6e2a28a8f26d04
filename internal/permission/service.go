package permission

import (
	"context"
	"math"
	"strconv"
	"time"

	"tessera/internal/events"
	"tessera/internal/roles"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Publisher is the slice of the event pipeline this service needs.
type Publisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service applies role-checked permission mutations and emits one event per
// changed field. Events emit before the store is touched, so a failed append
// aborts with no mutation.
type Service struct {
	store     *InMemoryStore
	registry  *roles.Registry
	publisher Publisher
}

func NewService(store *InMemoryStore, registry *roles.Registry, publisher Publisher) *Service {
	return &Service{store: store, registry: registry, publisher: publisher}
}

// Store exposes the underlying store for the restriction engine and ledger,
// which read permission attributes but never write them.
func (s *Service) Store() *InMemoryStore { return s.store }

// SetMaxBalance caps how much the account may hold. Wallets admin only.
func (s *Service) SetMaxBalance(ctx context.Context, actor, account domain.Address, max uint64) error {
	if err := s.registry.Require(roles.WalletsAdmin, actor); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "cannot set max balance of the zero address")
	}
	old := s.store.Get(account).MaxBalance
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:   actor,
		Subject: account,
		Action:  events.ActionAddressMaxBalance,
		Old:     strconv.FormatUint(old, 10),
		New:     strconv.FormatUint(max, 10),
	}); err != nil {
		return err
	}
	s.store.SetMaxBalance(account, max)
	return nil
}

// SetTransferGroup assigns the account's transfer group. Wallets admin only.
func (s *Service) SetTransferGroup(ctx context.Context, actor, account domain.Address, group domain.Group) error {
	if err := s.registry.Require(roles.WalletsAdmin, actor); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "cannot set group of the zero address")
	}
	old := s.store.Get(account).Group
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:   actor,
		Subject: account,
		Action:  events.ActionAddressTransferGroup,
		Old:     strconv.FormatUint(uint64(old), 10),
		New:     strconv.FormatUint(uint64(group), 10),
	}); err != nil {
		return err
	}
	s.store.SetGroup(account, group)
	return nil
}

// Freeze toggles the frozen flag. This is the one permission field shared
// between wallets and reserve admins.
func (s *Service) Freeze(ctx context.Context, actor, account domain.Address, frozen bool) error {
	if err := s.registry.RequireEither(roles.WalletsAdmin, roles.ReserveAdmin, actor); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "cannot freeze the zero address")
	}
	old := s.store.Get(account).Frozen
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:   actor,
		Subject: account,
		Action:  events.ActionAddressFrozen,
		Old:     strconv.FormatBool(old),
		New:     strconv.FormatBool(frozen),
	}); err != nil {
		return err
	}
	s.store.SetFrozen(account, frozen)
	return nil
}

// AddLockUntil reserves amount of the account's balance until the given
// timestamp. An existing lock at the same timestamp absorbs the amount.
func (s *Service) AddLockUntil(ctx context.Context, actor, account domain.Address, until time.Time, amount uint64) error {
	if err := s.registry.Require(roles.WalletsAdmin, actor); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "cannot lock the zero address")
	}
	if amount == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "lock amount must be positive")
	}
	if err := checkLockOverflow(s.store.Get(account).Locks, until, amount); err != nil {
		return err
	}
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:   actor,
		Subject: account,
		Action:  events.ActionTimeLockAdded,
		New:     until.UTC().Format(time.RFC3339),
		Amount:  amount,
	}); err != nil {
		return err
	}
	s.store.AddLock(account, until, amount)
	return nil
}

// checkLockOverflow rejects a lock whose amount would wrap when merged into
// an existing entry at the same timestamp.
func checkLockOverflow(locks []Lock, until time.Time, amount uint64) error {
	for _, l := range locks {
		if l.Until.Equal(until) && amount > math.MaxUint64-l.Amount {
			return dErrors.Newf(dErrors.CodeBadRequest, "adding %d to existing lock amount %d overflows", amount, l.Amount)
		}
	}
	return nil
}

// RemoveLockUntilTimestampLookup removes the lock with the given timestamp.
// A timestamp with no lock is a no-op.
func (s *Service) RemoveLockUntilTimestampLookup(ctx context.Context, actor, account domain.Address, until time.Time) error {
	if err := s.registry.Require(roles.WalletsAdmin, actor); err != nil {
		return err
	}
	var removed Lock
	found := false
	for _, l := range s.store.Get(account).Locks {
		if l.Until.Equal(until) {
			removed, found = l, true
			break
		}
	}
	if !found {
		return nil
	}
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:   actor,
		Subject: account,
		Action:  events.ActionTimeLockRemoved,
		Old:     removed.Until.UTC().Format(time.RFC3339),
		Amount:  removed.Amount,
	}); err != nil {
		return err
	}
	s.store.RemoveLockByTimestamp(account, until)
	return nil
}

// RemoveLockUntilIndexLookup removes the lock at index.
func (s *Service) RemoveLockUntilIndexLookup(ctx context.Context, actor, account domain.Address, index int) error {
	if err := s.registry.Require(roles.WalletsAdmin, actor); err != nil {
		return err
	}
	removed, err := s.store.LockAt(account, index)
	if err != nil {
		return err
	}
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:   actor,
		Subject: account,
		Action:  events.ActionTimeLockRemoved,
		Old:     removed.Until.UTC().Format(time.RFC3339),
		Amount:  removed.Amount,
	}); err != nil {
		return err
	}
	_, err = s.store.RemoveLockByIndex(account, index)
	return err
}

// SetAddressPermissions applies a batched update, emitting the same events
// the single-field setters would. Fields that did not change emit nothing;
// a lock is added only when LockAmount is positive. All events emit before
// any field is applied, so a failed append leaves every field untouched.
func (s *Service) SetAddressPermissions(ctx context.Context, actor, account domain.Address, update PermissionUpdate) error {
	if err := s.registry.Require(roles.WalletsAdmin, actor); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "cannot set permissions of the zero address")
	}

	current := s.store.Get(account)
	var (
		evts  []events.Event
		apply []func()
	)
	if update.Group != current.Group {
		evts = append(evts, events.Event{
			Actor:   actor,
			Subject: account,
			Action:  events.ActionAddressTransferGroup,
			Old:     strconv.FormatUint(uint64(current.Group), 10),
			New:     strconv.FormatUint(uint64(update.Group), 10),
		})
		apply = append(apply, func() { s.store.SetGroup(account, update.Group) })
	}
	if update.LockAmount > 0 {
		if err := checkLockOverflow(current.Locks, update.LockUntil, update.LockAmount); err != nil {
			return err
		}
		evts = append(evts, events.Event{
			Actor:   actor,
			Subject: account,
			Action:  events.ActionTimeLockAdded,
			New:     update.LockUntil.UTC().Format(time.RFC3339),
			Amount:  update.LockAmount,
		})
		apply = append(apply, func() { s.store.AddLock(account, update.LockUntil, update.LockAmount) })
	}
	if update.MaxBalance != current.MaxBalance {
		evts = append(evts, events.Event{
			Actor:   actor,
			Subject: account,
			Action:  events.ActionAddressMaxBalance,
			Old:     strconv.FormatUint(current.MaxBalance, 10),
			New:     strconv.FormatUint(update.MaxBalance, 10),
		})
		apply = append(apply, func() { s.store.SetMaxBalance(account, update.MaxBalance) })
	}
	if update.Frozen != current.Frozen {
		evts = append(evts, events.Event{
			Actor:   actor,
			Subject: account,
			Action:  events.ActionAddressFrozen,
			Old:     strconv.FormatBool(current.Frozen),
			New:     strconv.FormatBool(update.Frozen),
		})
		apply = append(apply, func() { s.store.SetFrozen(account, update.Frozen) })
	}

	for _, e := range evts {
		if err := s.publisher.Emit(ctx, e); err != nil {
			return err
		}
	}
	for _, fn := range apply {
		fn()
	}
	return nil
}

// SetAllowGroupTransfer opens (or re-times) transfers from one group to
// another starting at the given timestamp. Transfer admin only.
func (s *Service) SetAllowGroupTransfer(ctx context.Context, actor domain.Address, from, to domain.Group, after time.Time) error {
	if err := s.registry.Require(roles.TransferAdmin, actor); err != nil {
		return err
	}
	old, _ := s.store.GroupApproval(from, to)
	oldVal := ""
	if !old.IsZero() {
		oldVal = old.UTC().Format(time.RFC3339)
	}
	newVal := ""
	if !after.IsZero() {
		newVal = after.UTC().Format(time.RFC3339)
	}
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:     actor,
		Action:    events.ActionAllowGroupTransfer,
		Old:       oldVal,
		New:       newVal,
		FromGroup: uint64(from),
		ToGroup:   uint64(to),
	}); err != nil {
		return err
	}
	s.store.SetGroupApproval(from, to, after)
	return nil
}

// Read-only accessors used by handlers.

func (s *Service) Get(account domain.Address) AddressPermission { return s.store.Get(account) }

func (s *Service) GetTotalLocksUntil(account domain.Address) int { return s.store.LockCount(account) }

func (s *Service) GetLockUntilIndexLookup(account domain.Address, index int) (Lock, error) {
	return s.store.LockAt(account, index)
}

func (s *Service) GetAllowGroupTransferTime(from, to domain.Group) (time.Time, bool) {
	return s.store.GroupApproval(from, to)
}

func (s *Service) ActiveLockedAmount(account domain.Address, now time.Time) uint64 {
	return s.store.Get(account).ActiveLockedAmount(now)
}
