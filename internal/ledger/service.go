package ledger

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"tessera/internal/events"
	"tessera/internal/ledger/metrics"
	"tessera/internal/permission"
	"tessera/internal/restriction"
	"tessera/internal/roles"
	"tessera/internal/snapshot"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Publisher is the slice of the event pipeline the ledger needs.
type Publisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Config wires the ledger's collaborators and its construction parameters,
// mirroring the original issuance parameters: policy object, admins,
// metadata, initial supply (credited to the reserve admin), supply cap.
type Config struct {
	Address        domain.Address // the ledger's own account identifier
	Symbol         string
	Name           string
	Decimals       uint8
	ReserveAdmin   domain.Address
	InitialSupply  uint64
	MaxTotalSupply uint64

	Policy      *restriction.Holder
	Registry    *roles.Registry
	Permissions *permission.InMemoryStore
	Publisher   Publisher
	Metrics     *metrics.Metrics

	// Now is the clock; defaults to time.Now. Tests inject a fixed clock.
	Now func() time.Time
}

// Service is the balance ledger. One mutex serializes every mutating
// operation, giving each call run-to-completion semantics: all checks happen
// before any state is touched, so failures never leave partial mutations.
type Service struct {
	mu sync.Mutex

	meta    Metadata
	address domain.Address

	balances       map[domain.Address]uint64
	allowances     map[domain.Address]map[domain.Address]uint64
	totalSupply    uint64
	maxTotalSupply uint64
	paused         bool

	history *snapshot.History

	policy    *restriction.Holder
	registry  *roles.Registry
	perms     *permission.InMemoryStore
	publisher Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService builds the ledger and credits the initial supply to the reserve
// admin. Genesis state emits no events.
func NewService(cfg Config) (*Service, error) {
	if cfg.Policy == nil || cfg.Registry == nil || cfg.Permissions == nil || cfg.Publisher == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "ledger requires policy, registry, permissions, and publisher")
	}
	if cfg.Address.IsZero() {
		return nil, dErrors.New(dErrors.CodeZeroAddress, "ledger address cannot be the zero address")
	}
	if cfg.ReserveAdmin.IsZero() {
		return nil, dErrors.New(dErrors.CodeZeroAddress, "reserve admin cannot be the zero address")
	}
	if cfg.InitialSupply > cfg.MaxTotalSupply {
		return nil, dErrors.New(dErrors.CodeSupplyCapExceeded, "initial supply exceeds max total supply")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Service{
		meta:           Metadata{Symbol: cfg.Symbol, Name: cfg.Name, Decimals: cfg.Decimals},
		address:        cfg.Address,
		balances:       make(map[domain.Address]uint64),
		allowances:     make(map[domain.Address]map[domain.Address]uint64),
		maxTotalSupply: cfg.MaxTotalSupply,
		history:        snapshot.NewHistory(),
		policy:         cfg.Policy,
		registry:       cfg.Registry,
		perms:          cfg.Permissions,
		publisher:      cfg.Publisher,
		metrics:        cfg.Metrics,
		now:            now,
	}
	if cfg.InitialSupply > 0 {
		s.balances[cfg.ReserveAdmin] = cfg.InitialSupply
		s.totalSupply = cfg.InitialSupply
	}
	return s, nil
}

// DetectTransferRestriction classifies a prospective transfer without
// mutating anything. It is a deterministic function of current state.
func (s *Service) DetectTransferRestriction(from, to domain.Address, amount uint64) restriction.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectLocked(from, to, amount)
}

func (s *Service) detectLocked(from, to domain.Address, amount uint64) restriction.Code {
	now := s.now()
	fromPerm := s.perms.Get(from)
	toPerm := s.perms.Get(to)
	allowedAt, approved := s.perms.GroupApproval(fromPerm.Group, toPerm.Group)
	return s.policy.Detect(restriction.Input{
		From:           from,
		To:             to,
		Amount:         amount,
		Now:            now,
		Paused:         s.paused,
		LedgerAddress:  s.address,
		FromBalance:    s.balances[from],
		ToBalance:      s.balances[to],
		FromFrozen:     fromPerm.Frozen,
		ToFrozen:       toPerm.Frozen,
		FromLocked:     fromPerm.ActiveLockedAmount(now),
		ToMaxBalance:   toPerm.MaxBalance,
		FromGroup:      fromPerm.Group,
		ToGroup:        toPerm.Group,
		GroupApproved:  approved,
		GroupAllowedAt: allowedAt,
	})
}

// MessageForTransferRestriction returns the installed policy's message for a
// restriction code.
func (s *Service) MessageForTransferRestriction(code restriction.Code) string {
	return s.policy.MessageFor(code)
}

// Transfer moves amount from the caller to another account, gated by the
// restriction engine.
func (s *Service) Transfer(ctx context.Context, actor, to domain.Address, amount uint64) error {
	if actor.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "sender cannot be the zero address")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferLocked(ctx, actor, actor, to, amount)
}

// TransferFrom moves amount between two accounts using the caller's
// allowance from the source account.
func (s *Service) TransferFrom(ctx context.Context, actor, from, to domain.Address, amount uint64) error {
	if actor.IsZero() || from.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "sender cannot be the zero address")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	allowed := s.allowances[from][actor]
	if allowed < amount {
		return dErrors.Newf(dErrors.CodeInsufficientAllowance, "allowance %d is less than transfer amount %d", allowed, amount)
	}
	if err := s.transferLocked(ctx, actor, from, to, amount); err != nil {
		return err
	}
	if s.allowances[from] == nil {
		s.allowances[from] = make(map[domain.Address]uint64)
	}
	s.allowances[from][actor] = allowed - amount
	return nil
}

// transferLocked runs the restriction gate, emits the event, then mutates.
// Event emission precedes mutation so a failed append aborts with no partial
// state; the in-memory mutation itself cannot fail once checks pass.
func (s *Service) transferLocked(ctx context.Context, actor, from, to domain.Address, amount uint64) error {
	code := s.detectLocked(from, to, amount)
	s.metrics.IncTransferOutcome(strconv.Itoa(int(code)))
	if code != restriction.CodeSuccess {
		return restrictedError(code, s.policy.MessageFor(code))
	}
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:   actor,
		Subject: to,
		Action:  events.ActionTransfer,
		Old:     string(from),
		Amount:  amount,
	}); err != nil {
		return err
	}
	s.history.RecordBalance(from, s.balances[from])
	s.history.RecordBalance(to, s.balances[to])
	s.balances[from] -= amount
	s.balances[to] += amount
	return nil
}

func restrictedError(code restriction.Code, message string) error {
	return dErrors.Newf(dErrors.CodeTransferRestricted, "transfer restricted (%d): %s", code, message)
}

// Approve sets the caller's allowance for spender to amount.
func (s *Service) Approve(ctx context.Context, actor, spender domain.Address, amount uint64) error {
	return s.setAllowance(ctx, actor, spender, amount, false)
}

// SafeApprove only permits transitions from zero or to zero, rejecting
// nonzero-to-nonzero changes to avoid the allowance race.
func (s *Service) SafeApprove(ctx context.Context, actor, spender domain.Address, amount uint64) error {
	return s.setAllowance(ctx, actor, spender, amount, true)
}

func (s *Service) setAllowance(ctx context.Context, actor, spender domain.Address, amount uint64, safe bool) error {
	if actor.IsZero() || spender.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "cannot approve the zero address")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.allowances[actor][spender]
	if safe && old != 0 && amount != 0 {
		return dErrors.New(dErrors.CodeUnsafeAllowance, "cannot change a nonzero allowance to another nonzero value")
	}
	return s.writeAllowance(ctx, actor, spender, old, amount)
}

// IncreaseAllowance raises the caller's allowance for spender by amount.
func (s *Service) IncreaseAllowance(ctx context.Context, actor, spender domain.Address, amount uint64) error {
	if actor.IsZero() || spender.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "cannot approve the zero address")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.allowances[actor][spender]
	if amount > math.MaxUint64-old {
		return dErrors.Newf(dErrors.CodeBadRequest, "increasing allowance %d by %d overflows", old, amount)
	}
	return s.writeAllowance(ctx, actor, spender, old, old+amount)
}

// DecreaseAllowance lowers the caller's allowance for spender by amount.
func (s *Service) DecreaseAllowance(ctx context.Context, actor, spender domain.Address, amount uint64) error {
	if actor.IsZero() || spender.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "cannot approve the zero address")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.allowances[actor][spender]
	if amount > old {
		return dErrors.Newf(dErrors.CodeInsufficientAllowance, "cannot decrease allowance %d by %d", old, amount)
	}
	return s.writeAllowance(ctx, actor, spender, old, old-amount)
}

func (s *Service) writeAllowance(ctx context.Context, owner, spender domain.Address, old, value uint64) error {
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:   owner,
		Subject: spender,
		Action:  events.ActionApproval,
		Old:     strconv.FormatUint(old, 10),
		New:     strconv.FormatUint(value, 10),
	}); err != nil {
		return err
	}
	if s.allowances[owner] == nil {
		s.allowances[owner] = make(map[domain.Address]uint64)
	}
	s.allowances[owner][spender] = value
	return nil
}

// Mint credits newly issued units to an account. Reserve admin only; bypasses
// the restriction gate but respects the supply cap and rejects the zero
// address.
func (s *Service) Mint(ctx context.Context, actor, to domain.Address, amount uint64) error {
	if err := s.registry.Require(roles.ReserveAdmin, actor); err != nil {
		return err
	}
	if to.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "cannot mint to the zero address")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount > s.maxTotalSupply || s.totalSupply > s.maxTotalSupply-amount {
		return dErrors.Newf(dErrors.CodeSupplyCapExceeded, "minting %d would exceed max total supply %d", amount, s.maxTotalSupply)
	}
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:   actor,
		Subject: to,
		Action:  events.ActionMint,
		Amount:  amount,
	}); err != nil {
		return err
	}
	s.history.RecordBalance(to, s.balances[to])
	s.history.RecordSupply(s.totalSupply)
	s.balances[to] += amount
	s.totalSupply += amount
	s.metrics.AddMinted(amount)
	return nil
}

// Burn destroys units held by an account. Reserve admin only.
func (s *Service) Burn(ctx context.Context, actor, from domain.Address, amount uint64) error {
	if err := s.registry.Require(roles.ReserveAdmin, actor); err != nil {
		return err
	}
	if from.IsZero() {
		return dErrors.New(dErrors.CodeZeroAddress, "cannot burn from the zero address")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[from] < amount {
		return dErrors.Newf(dErrors.CodeInsufficientBalance, "cannot burn %d from balance %d", amount, s.balances[from])
	}
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:   actor,
		Subject: from,
		Action:  events.ActionBurn,
		Amount:  amount,
	}); err != nil {
		return err
	}
	s.history.RecordBalance(from, s.balances[from])
	s.history.RecordSupply(s.totalSupply)
	s.balances[from] -= amount
	s.totalSupply -= amount
	s.metrics.AddBurned(amount)
	return nil
}

// Pause stops all transfers. Contract admin only.
func (s *Service) Pause(ctx context.Context, actor domain.Address) error {
	return s.setPaused(ctx, actor, true)
}

// Unpause resumes transfers. Contract admin only.
func (s *Service) Unpause(ctx context.Context, actor domain.Address) error {
	return s.setPaused(ctx, actor, false)
}

func (s *Service) setPaused(ctx context.Context, actor domain.Address, paused bool) error {
	if err := s.registry.Require(roles.ContractAdmin, actor); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.paused
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:  actor,
		Action: events.ActionPause,
		Old:    strconv.FormatBool(old),
		New:    strconv.FormatBool(paused),
	}); err != nil {
		return err
	}
	s.paused = paused
	return nil
}

// Snapshot creates a new snapshot and returns its id. Contract admin only.
func (s *Service) Snapshot(ctx context.Context, actor domain.Address) (domain.SnapshotID, error) {
	if err := s.registry.Require(roles.ContractAdmin, actor); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.history.Advance()
	if err := s.publisher.Emit(ctx, events.Event{
		Actor:      actor,
		Action:     events.ActionSnapshotCreated,
		SnapshotID: id,
	}); err != nil {
		// The id was consumed; the event failing means the caller should
		// retry with a fresh snapshot rather than reuse this one.
		return 0, err
	}
	s.metrics.IncSnapshots()
	return id, nil
}

// Read-only accessors.

func (s *Service) Metadata() Metadata { return s.meta }

// Address returns the ledger's own account identifier.
func (s *Service) Address() domain.Address { return s.address }

func (s *Service) BalanceOf(account domain.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[account]
}

func (s *Service) Allowance(owner, spender domain.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowances[owner][spender]
}

func (s *Service) TotalSupply() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSupply
}

func (s *Service) MaxTotalSupply() uint64 { return s.maxTotalSupply }

func (s *Service) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Service) GetCurrentSnapshotID() domain.SnapshotID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Current()
}

// BalanceOfAt returns the account's balance as of the given snapshot.
func (s *Service) BalanceOfAt(account domain.Address, id domain.SnapshotID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.BalanceOfAt(account, id, s.balances[account])
}

// TotalSupplyAt returns the total supply as of the given snapshot.
func (s *Service) TotalSupplyAt(id domain.SnapshotID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.SupplyAt(id, s.totalSupply)
}

// GetCurrentlyLockedBalance returns the sum of the account's active locks.
func (s *Service) GetCurrentlyLockedBalance(account domain.Address) uint64 {
	return s.perms.Get(account).ActiveLockedAmount(s.now())
}

// GetCurrentlyUnlockedBalance returns the portion of the balance free to
// move. Locks can transiently exceed the balance, in which case nothing is
// unlocked.
func (s *Service) GetCurrentlyUnlockedBalance(account domain.Address) uint64 {
	locked := s.GetCurrentlyLockedBalance(account)
	balance := s.BalanceOf(account)
	if locked >= balance {
		return 0
	}
	return balance - locked
}
