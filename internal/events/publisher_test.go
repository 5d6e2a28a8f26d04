package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"tessera/internal/events"
	eventsmemory "tessera/internal/events/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, events.Event) error {
	return errors.New("disk full")
}

func (failingStore) List(context.Context, string) ([]events.Event, error) {
	return nil, nil
}

type PublisherSuite struct {
	suite.Suite
	store *eventsmemory.InMemoryStore
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.store = eventsmemory.NewInMemoryStore()
}

func (s *PublisherSuite) TestEmitStampsTime() {
	ctx := context.Background()
	publisher := events.NewPublisher(s.store)

	s.Require().NoError(publisher.Emit(ctx, events.Event{Actor: "alice", Action: events.ActionTransfer}))

	list, err := s.store.List(ctx, "")
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.False(list[0].Timestamp.IsZero())
}

func (s *PublisherSuite) TestEmitKeepsExplicitTime() {
	ctx := context.Background()
	publisher := events.NewPublisher(s.store)

	evt := events.Event{Actor: "alice", Action: events.ActionMint}
	evt.Timestamp = evt.Timestamp.AddDate(2020, 0, 0)
	s.Require().NoError(publisher.Emit(ctx, evt))

	list, err := s.store.List(ctx, "")
	s.Require().NoError(err)
	s.Equal(evt.Timestamp, list[0].Timestamp)
}

func (s *PublisherSuite) TestEmitFailsClosed() {
	publisher := events.NewPublisher(failingStore{})
	err := publisher.Emit(context.Background(), events.Event{Action: events.ActionBurn})
	s.Error(err)
}

func (s *PublisherSuite) TestListFiltersBySubject() {
	ctx := context.Background()
	publisher := events.NewPublisher(s.store)

	s.Require().NoError(publisher.Emit(ctx, events.Event{Subject: "alice", Action: events.ActionMint}))
	s.Require().NoError(publisher.Emit(ctx, events.Event{Subject: "bob", Action: events.ActionBurn}))
	s.Require().NoError(publisher.Emit(ctx, events.Event{Subject: "alice", Action: events.ActionTransfer}))

	mine, err := s.store.List(ctx, "alice")
	s.Require().NoError(err)
	s.Len(mine, 2)

	all, err := s.store.List(ctx, "")
	s.Require().NoError(err)
	s.Len(all, 3)
}
