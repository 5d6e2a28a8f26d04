//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tessera/internal/events"
	"tessera/internal/events/store/postgres"
	"tessera/pkg/domain"
	"tessera/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())

	_, err := s.postgres.DB.ExecContext(context.Background(), postgres.Schema)
	s.Require().NoError(err)

	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "ledger_outbox")
	s.Require().NoError(err)
}

// append writes an event and spaces inserts apart so created_at ordering
// is deterministic under Postgres timestamp resolution.
func (s *PostgresStoreSuite) append(event events.Event) {
	s.Require().NoError(s.store.Append(context.Background(), event))
	time.Sleep(5 * time.Millisecond)
}

// ==================== List ====================

// TestListRoundTrip verifies an appended event comes back with every field
// intact.
func (s *PostgresStoreSuite) TestListRoundTrip() {
	ctx := context.Background()
	ts := time.Now().UTC().Truncate(time.Millisecond)

	s.append(events.Event{
		Timestamp:  ts,
		Actor:      "alice",
		Subject:    "bob",
		Action:     events.ActionTransfer,
		Old:        "alice",
		Amount:     42,
		FromGroup:  1,
		ToGroup:    2,
		Asset:      "reward-usd",
		SnapshotID: 7,
	})

	listed, err := s.store.List(ctx, "")
	s.Require().NoError(err)
	s.Require().Len(listed, 1)

	got := listed[0]
	s.True(got.Timestamp.Equal(ts), "timestamp should survive the round trip")
	s.Equal(domain.Address("alice"), got.Actor)
	s.Equal(domain.Address("bob"), got.Subject)
	s.Equal(events.ActionTransfer, got.Action)
	s.Equal("alice", got.Old)
	s.Equal(uint64(42), got.Amount)
	s.Equal(uint64(1), got.FromGroup)
	s.Equal(uint64(2), got.ToGroup)
	s.Equal(domain.Address("reward-usd"), got.Asset)
	s.Equal(domain.SnapshotID(7), got.SnapshotID)
}

// TestListNewestFirst verifies List returns events in reverse insertion order.
func (s *PostgresStoreSuite) TestListNewestFirst() {
	ctx := context.Background()

	s.append(events.Event{Subject: "alice", Action: events.ActionMint, Amount: 1})
	s.append(events.Event{Subject: "alice", Action: events.ActionMint, Amount: 2})
	s.append(events.Event{Subject: "alice", Action: events.ActionMint, Amount: 3})

	listed, err := s.store.List(ctx, "")
	s.Require().NoError(err)
	s.Require().Len(listed, 3)
	s.Equal(uint64(3), listed[0].Amount)
	s.Equal(uint64(2), listed[1].Amount)
	s.Equal(uint64(1), listed[2].Amount)
}

// TestListFiltersBySubject verifies the subject filter and that an unknown
// subject yields an empty result rather than an error.
func (s *PostgresStoreSuite) TestListFiltersBySubject() {
	ctx := context.Background()

	s.append(events.Event{Subject: "alice", Action: events.ActionMint, Amount: 10})
	s.append(events.Event{Subject: "bob", Action: events.ActionMint, Amount: 20})
	s.append(events.Event{Subject: "alice", Action: events.ActionBurn, Amount: 5})

	listed, err := s.store.List(ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	for _, event := range listed {
		s.Equal(domain.Address("alice"), event.Subject)
	}

	listed, err = s.store.List(ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(listed)
}

// ==================== Outbox draining ====================

// TestNextBatchInsertionOrder verifies unpublished rows come back oldest
// first so downstream consumers see events in the order they happened.
func (s *PostgresStoreSuite) TestNextBatchInsertionOrder() {
	ctx := context.Background()

	s.append(events.Event{Subject: "alice", Action: events.ActionMint, Amount: 1})
	s.append(events.Event{Subject: "alice", Action: events.ActionMint, Amount: 2})
	s.append(events.Event{Subject: "alice", Action: events.ActionMint, Amount: 3})

	batch, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(batch, 3)

	amounts := make([]uint64, 0, len(batch))
	for _, row := range batch {
		var p struct {
			Amount uint64 `json:"Amount"`
		}
		s.Require().NoError(json.Unmarshal(row.Payload, &p))
		amounts = append(amounts, p.Amount)
	}
	s.Equal([]uint64{1, 2, 3}, amounts)
}

// TestNextBatchRespectsLimit verifies the batch size cap.
func (s *PostgresStoreSuite) TestNextBatchRespectsLimit() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.append(events.Event{Subject: "alice", Action: events.ActionMint, Amount: uint64(i)})
	}

	batch, err := s.store.NextBatch(ctx, 2)
	s.Require().NoError(err)
	s.Len(batch, 2)
}

// TestMarkPublishedExcludesFromNextBatch verifies published rows stop
// appearing in subsequent batches but remain visible to List.
func (s *PostgresStoreSuite) TestMarkPublishedExcludesFromNextBatch() {
	ctx := context.Background()

	s.append(events.Event{Subject: "alice", Action: events.ActionMint, Amount: 1})
	s.append(events.Event{Subject: "alice", Action: events.ActionMint, Amount: 2})

	batch, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(batch, 2)

	// Publish only the first row.
	err = s.store.MarkPublished(ctx, []string{batch[0].ID})
	s.Require().NoError(err)

	remaining, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(batch[1].ID, remaining[0].ID)

	// The event log itself keeps everything.
	listed, err := s.store.List(ctx, "alice")
	s.Require().NoError(err)
	s.Len(listed, 2)
}

// TestMarkPublishedEmpty verifies an empty id slice is a no-op.
func (s *PostgresStoreSuite) TestMarkPublishedEmpty() {
	s.NoError(s.store.MarkPublished(context.Background(), nil))
}
