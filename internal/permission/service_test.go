package permission_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tessera/internal/events"
	eventsmemory "tessera/internal/events/store/memory"
	"tessera/internal/permission"
	"tessera/internal/roles"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// =============================================================================
// Permission Service Test Suite
// =============================================================================
// Covers admin gating per field, lock list semantics (merge, remove by
// timestamp or index), the batched update, and the group approval matrix.

type PermissionServiceSuite struct {
	suite.Suite
	events   *eventsmemory.InMemoryStore
	registry *roles.Registry
	service  *permission.Service
	now      time.Time
}

func TestPermissionServiceSuite(t *testing.T) {
	suite.Run(t, new(PermissionServiceSuite))
}

func (s *PermissionServiceSuite) SetupTest() {
	s.events = eventsmemory.NewInMemoryStore()
	publisher := events.NewPublisher(s.events)

	var err error
	s.registry, err = roles.NewRegistry("contract-admin", "reserve-admin", publisher)
	s.Require().NoError(err)
	ctx := context.Background()
	s.Require().NoError(s.registry.Grant(ctx, "contract-admin", roles.WalletsAdmin, "wallets-admin"))
	s.Require().NoError(s.registry.Grant(ctx, "contract-admin", roles.TransferAdmin, "transfer-admin"))

	s.service = permission.NewService(permission.NewInMemoryStore(), s.registry, publisher)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PermissionServiceSuite) TestDefaults() {
	perm := s.service.Get("unseen")
	s.Equal(uint64(0), uint64(perm.Group))
	s.Equal(uint64(0), perm.MaxBalance)
	s.False(perm.Frozen)
	s.Empty(perm.Locks)
}

func (s *PermissionServiceSuite) TestFieldSetters() {
	ctx := context.Background()

	s.Run("max balance requires wallets admin", func() {
		err := s.service.SetMaxBalance(ctx, "rando", "alice", 100)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		s.NoError(s.service.SetMaxBalance(ctx, "wallets-admin", "alice", 100))
		s.Equal(uint64(100), s.service.Get("alice").MaxBalance)
	})

	s.Run("transfer group requires wallets admin", func() {
		err := s.service.SetTransferGroup(ctx, "transfer-admin", "alice", 3)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		s.NoError(s.service.SetTransferGroup(ctx, "wallets-admin", "alice", 3))
		s.Equal(uint64(3), uint64(s.service.Get("alice").Group))
	})

	s.Run("freeze accepts wallets or reserve admin", func() {
		s.NoError(s.service.Freeze(ctx, "wallets-admin", "alice", true))
		s.True(s.service.Get("alice").Frozen)

		s.NoError(s.service.Freeze(ctx, "reserve-admin", "alice", false))
		s.False(s.service.Get("alice").Frozen)

		err := s.service.Freeze(ctx, "transfer-admin", "alice", true)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("zero address is rejected", func() {
		err := s.service.SetMaxBalance(ctx, "wallets-admin", "", 100)
		s.True(dErrors.HasCode(err, dErrors.CodeZeroAddress))
	})
}

func (s *PermissionServiceSuite) TestLocks() {
	ctx := context.Background()
	later := s.now.Add(24 * time.Hour)

	s.Run("add requires wallets admin and positive amount", func() {
		err := s.service.AddLockUntil(ctx, "rando", "alice", later, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		err = s.service.AddLockUntil(ctx, "wallets-admin", "alice", later, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("same timestamp merges amounts", func() {
		s.NoError(s.service.AddLockUntil(ctx, "wallets-admin", "alice", later, 10))
		s.NoError(s.service.AddLockUntil(ctx, "wallets-admin", "alice", later, 5))

		s.Equal(1, s.service.GetTotalLocksUntil("alice"))
		lock, err := s.service.GetLockUntilIndexLookup("alice", 0)
		s.Require().NoError(err)
		s.Equal(uint64(15), lock.Amount)
	})

	s.Run("locks stay sorted by timestamp", func() {
		earlier := s.now.Add(time.Hour)
		s.NoError(s.service.AddLockUntil(ctx, "wallets-admin", "alice", earlier, 7))

		first, err := s.service.GetLockUntilIndexLookup("alice", 0)
		s.Require().NoError(err)
		s.True(first.Until.Equal(earlier))
	})

	s.Run("active amount counts only unexpired locks", func() {
		s.Equal(uint64(22), s.service.ActiveLockedAmount("alice", s.now))
		s.Equal(uint64(15), s.service.ActiveLockedAmount("alice", s.now.Add(2*time.Hour)))
		s.Equal(uint64(0), s.service.ActiveLockedAmount("alice", s.now.Add(48*time.Hour)))
	})

	s.Run("remove by absent timestamp is a no-op", func() {
		s.NoError(s.service.RemoveLockUntilTimestampLookup(ctx, "wallets-admin", "alice", s.now.Add(99*time.Hour)))
		s.Equal(2, s.service.GetTotalLocksUntil("alice"))
	})

	s.Run("remove by timestamp", func() {
		s.NoError(s.service.RemoveLockUntilTimestampLookup(ctx, "wallets-admin", "alice", later))
		s.Equal(1, s.service.GetTotalLocksUntil("alice"))
	})

	s.Run("remove by out-of-range index fails", func() {
		err := s.service.RemoveLockUntilIndexLookup(ctx, "wallets-admin", "alice", 5)
		s.True(dErrors.HasCode(err, dErrors.CodeIndexOutOfRange))
	})

	s.Run("remove by index", func() {
		s.NoError(s.service.RemoveLockUntilIndexLookup(ctx, "wallets-admin", "alice", 0))
		s.Equal(0, s.service.GetTotalLocksUntil("alice"))
	})
}

func (s *PermissionServiceSuite) TestSetAddressPermissions() {
	ctx := context.Background()

	update := permission.PermissionUpdate{
		Group:      2,
		LockUntil:  s.now.Add(time.Hour),
		LockAmount: 40,
		MaxBalance: 500,
		Frozen:     false,
	}
	s.Require().NoError(s.service.SetAddressPermissions(ctx, "wallets-admin", "bob", update))

	perm := s.service.Get("bob")
	s.Equal(uint64(2), uint64(perm.Group))
	s.Equal(uint64(500), perm.MaxBalance)
	s.False(perm.Frozen)
	s.Require().Len(perm.Locks, 1)
	s.Equal(uint64(40), perm.Locks[0].Amount)

	s.Run("unchanged fields emit no events", func() {
		before, err := s.events.List(ctx, "bob")
		s.Require().NoError(err)

		// Same group and max balance, no lock: nothing changes.
		update.LockAmount = 0
		s.Require().NoError(s.service.SetAddressPermissions(ctx, "wallets-admin", "bob", update))

		after, err := s.events.List(ctx, "bob")
		s.Require().NoError(err)
		s.Len(after, len(before))
	})

	s.Run("requires wallets admin", func() {
		err := s.service.SetAddressPermissions(ctx, "rando", "bob", update)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *PermissionServiceSuite) TestGroupApproval() {
	ctx := context.Background()
	after := s.now.Add(time.Hour)

	s.Run("requires transfer admin", func() {
		err := s.service.SetAllowGroupTransfer(ctx, "wallets-admin", 1, 2, after)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unset pair reports not approved", func() {
		_, ok := s.service.GetAllowGroupTransferTime(1, 2)
		s.False(ok)
	})

	s.Run("approval is directional", func() {
		s.NoError(s.service.SetAllowGroupTransfer(ctx, "transfer-admin", 1, 2, after))

		got, ok := s.service.GetAllowGroupTransferTime(1, 2)
		s.True(ok)
		s.True(got.Equal(after))

		_, ok = s.service.GetAllowGroupTransferTime(2, 1)
		s.False(ok)
	})

	s.Run("zero time clears the approval", func() {
		s.NoError(s.service.SetAllowGroupTransfer(ctx, "transfer-admin", 1, 2, time.Time{}))
		_, ok := s.service.GetAllowGroupTransferTime(1, 2)
		s.False(ok)
	})
}

// failingPublisher refuses every emit, standing in for an unreachable outbox.
type failingPublisher struct{}

func (failingPublisher) Emit(context.Context, events.Event) error {
	return errors.New("outbox unavailable")
}

// haltingPublisher accepts a fixed number of emits and then fails, so a
// multi-event call can be interrupted partway through.
type haltingPublisher struct {
	remaining int
}

func (p *haltingPublisher) Emit(context.Context, events.Event) error {
	if p.remaining == 0 {
		return errors.New("outbox unavailable")
	}
	p.remaining--
	return nil
}

func (s *PermissionServiceSuite) TestEmitFailureLeavesStateUntouched() {
	ctx := context.Background()

	s.Run("field setters roll back", func() {
		svc := permission.NewService(permission.NewInMemoryStore(), s.registry, failingPublisher{})

		s.Error(svc.SetMaxBalance(ctx, "wallets-admin", "alice", 500))
		s.Equal(uint64(0), svc.Get("alice").MaxBalance)

		s.Error(svc.Freeze(ctx, "reserve-admin", "alice", true))
		s.False(svc.Get("alice").Frozen)

		s.Error(svc.AddLockUntil(ctx, "wallets-admin", "alice", s.now.Add(time.Hour), 10))
		s.Equal(0, svc.GetTotalLocksUntil("alice"))
	})

	s.Run("batched update applies nothing when an emit fails partway", func() {
		svc := permission.NewService(permission.NewInMemoryStore(), s.registry, &haltingPublisher{remaining: 1})

		err := svc.SetAddressPermissions(ctx, "wallets-admin", "alice", permission.PermissionUpdate{
			Group:      2,
			MaxBalance: 900,
			Frozen:     true,
		})
		s.Error(err)

		perm := svc.Get("alice")
		s.Equal(domain.Group(0), perm.Group)
		s.Equal(uint64(0), perm.MaxBalance)
		s.False(perm.Frozen)
	})

	s.Run("group approval stays unset", func() {
		svc := permission.NewService(permission.NewInMemoryStore(), s.registry, failingPublisher{})

		s.Error(svc.SetAllowGroupTransfer(ctx, "transfer-admin", 1, 2, s.now))
		_, ok := svc.GetAllowGroupTransferTime(1, 2)
		s.False(ok)
	})
}

func (s *PermissionServiceSuite) TestLockMergeOverflow() {
	ctx := context.Background()
	until := s.now.Add(time.Hour)
	s.Require().NoError(s.service.AddLockUntil(ctx, "wallets-admin", "alice", until, math.MaxUint64))

	err := s.service.AddLockUntil(ctx, "wallets-admin", "alice", until, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	lock, lookupErr := s.service.GetLockUntilIndexLookup("alice", 0)
	s.Require().NoError(lookupErr)
	s.Equal(uint64(math.MaxUint64), lock.Amount)
}
