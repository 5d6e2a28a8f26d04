package snapshot

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// =============================================================================
// Snapshot History Test Suite
// =============================================================================

type HistorySuite struct {
	suite.Suite
	history *History
}

func TestHistorySuite(t *testing.T) {
	suite.Run(t, new(HistorySuite))
}

func (s *HistorySuite) SetupTest() {
	s.history = NewHistory()
}

func (s *HistorySuite) TestGenesis() {
	s.Equal(uint64(0), uint64(s.history.Current()))

	// Genesis state is queryable as id 0 and falls back to the live value.
	balance, err := s.history.BalanceOfAt("alice", 0, 42)
	s.NoError(err)
	s.Equal(uint64(42), balance)
}

func (s *HistorySuite) TestAdvance() {
	s.Equal(uint64(1), uint64(s.history.Advance()))
	s.Equal(uint64(2), uint64(s.history.Advance()))
	s.Equal(uint64(2), uint64(s.history.Current()))
}

func (s *HistorySuite) TestFutureSnapshotRejected() {
	_, err := s.history.BalanceOfAt("alice", 1, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.history.SupplyAt(7, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *HistorySuite) TestRoundTrip() {
	// alice holds 100 at snapshot 1, then the balance changes.
	s.history.RecordBalance("alice", 0)
	live := uint64(100)

	id := s.history.Advance()
	s.history.RecordBalance("alice", live)
	live = 70

	got, err := s.history.BalanceOfAt("alice", id, live)
	s.NoError(err)
	s.Equal(uint64(100), got)
}

func (s *HistorySuite) TestUnchangedBalanceReadsLive() {
	s.history.Advance()
	s.history.Advance()

	// No mutation since either snapshot: both read the live value.
	for _, id := range []uint64{1, 2} {
		got, err := s.history.BalanceOfAt("bob", domain.SnapshotID(id), 55)
		s.NoError(err)
		s.Equal(uint64(55), got)
	}
}

func (s *HistorySuite) TestSparseCheckpoints() {
	// Value was 10 across snapshots 1..3, changed once after snapshot 3.
	s.history.RecordBalance("carol", 0)
	s.history.Advance() // 1
	s.history.Advance() // 2
	s.history.Advance() // 3
	s.history.RecordBalance("carol", 10)
	live := uint64(25)

	for id := uint64(1); id <= 3; id++ {
		got, err := s.history.BalanceOfAt("carol", domain.SnapshotID(id), live)
		s.NoError(err)
		s.Equal(uint64(10), got, "snapshot %d", id)
	}
}

func (s *HistorySuite) TestOnlyFirstChangePerIntervalCheckpointed() {
	id := s.history.Advance()
	s.history.RecordBalance("dave", 100)
	s.history.RecordBalance("dave", 90) // same interval, ignored
	s.history.RecordBalance("dave", 80) // same interval, ignored
	live := uint64(75)

	got, err := s.history.BalanceOfAt("dave", id, live)
	s.NoError(err)
	s.Equal(uint64(100), got)
}

func (s *HistorySuite) TestSupplyHistory() {
	s.history.RecordSupply(0)
	id1 := s.history.Advance()
	s.history.RecordSupply(1000)
	id2 := s.history.Advance()
	s.history.RecordSupply(1500)
	live := uint64(1200)

	got, err := s.history.SupplyAt(id1, live)
	s.NoError(err)
	s.Equal(uint64(1000), got)

	got, err = s.history.SupplyAt(id2, live)
	s.NoError(err)
	s.Equal(uint64(1500), got)
}
