package restriction_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"tessera/internal/events"
	eventsmemory "tessera/internal/events/store/memory"
	"tessera/internal/restriction"
	"tessera/internal/roles"
	dErrors "tessera/pkg/domain-errors"
)

type HolderSuite struct {
	suite.Suite
	store    *eventsmemory.InMemoryStore
	registry *roles.Registry
	holder   *restriction.Holder
}

func TestHolderSuite(t *testing.T) {
	suite.Run(t, new(HolderSuite))
}

func (s *HolderSuite) SetupTest() {
	s.store = eventsmemory.NewInMemoryStore()
	publisher := events.NewPublisher(s.store)

	var err error
	s.registry, err = roles.NewRegistry("contract-admin", "reserve-admin", publisher)
	s.Require().NoError(err)
	s.Require().NoError(s.registry.Grant(context.Background(), "contract-admin", roles.TransferAdmin, "transfer-admin"))

	s.holder, err = restriction.NewHolder(restriction.NewDefaultPolicy(), s.registry, publisher)
	s.Require().NoError(err)
}

func (s *HolderSuite) TestNewHolderRejectsNilPolicy() {
	_, err := restriction.NewHolder(nil, s.registry, events.NewPublisher(s.store))
	s.Error(err)
}

func (s *HolderSuite) TestUpgrade() {
	ctx := context.Background()

	s.Run("requires transfer admin", func() {
		err := s.holder.Upgrade(ctx, "rando", restriction.NewDefaultPolicy())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects nil replacement", func() {
		err := s.holder.Upgrade(ctx, "transfer-admin", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("installs replacement and records the change", func() {
		next := restriction.NewDefaultPolicy()
		s.NoError(s.holder.Upgrade(ctx, "transfer-admin", next))
		s.Same(next, s.holder.Current())

		list, err := s.store.List(ctx, "")
		s.Require().NoError(err)
		var found bool
		for _, e := range list {
			if e.Action == events.ActionUpgrade {
				found = true
			}
		}
		s.True(found)
	})
}

// failingPublisher refuses every emit, standing in for an unreachable outbox.
type failingPublisher struct{}

func (failingPublisher) Emit(context.Context, events.Event) error {
	return errors.New("outbox unavailable")
}

func (s *HolderSuite) TestUpgradeEmitFailureKeepsPolicy() {
	ctx := context.Background()
	holder, err := restriction.NewHolder(restriction.NewDefaultPolicy(), s.registry, failingPublisher{})
	s.Require().NoError(err)

	installed := holder.Current()
	s.Error(holder.Upgrade(ctx, "transfer-admin", restriction.NewDefaultPolicy()))
	s.Same(installed, holder.Current())
}
